package job

import (
	"context"
	"fmt"

	"github.com/s0up4200/splatctl/bugsplat"
)

// UserParams are the inputs of a user management job
type UserParams struct {
	Selection Selection
	Users     []string
	Domain    string
}

// UserReport counts the outcome of a user change across databases
type UserReport struct {
	Selected  []string
	Succeeded int
	Failed    int
	Missing   int
}

// UserListing is the user list of one database
type UserListing struct {
	Database string
	Users    []bugsplat.Record
	Err      error
}

func (p UserParams) emails() []string {
	emails := make([]string, 0, len(p.Users))
	for _, u := range p.Users {
		emails = append(emails, bugsplat.Email(u, p.Domain))
	}
	return emails
}

// AddUsers grants every user access to every selected database
func AddUsers(ctx context.Context, deps Deps, p UserParams) (*UserReport, error) {
	if len(p.Users) == 0 {
		return nil, fmt.Errorf("%w: no users given", ErrInvalidParams)
	}
	return runUsers(ctx, deps, p, "add", func(ctx context.Context, report *UserReport, database string, emails []string) error {
		for _, email := range emails {
			if err := ctx.Err(); err != nil {
				return err
			}
			log := deps.Logger.With().Str("database", database).Str("user", email).Logger()
			if err := deps.Client.AddUser(ctx, email, database); err != nil {
				log.Error().Err(err).Msg("Failed to add user")
				report.Failed++
				continue
			}
			log.Info().Msg("Added user")
			report.Succeeded++
		}
		return nil
	})
}

// RemoveUsers revokes the access of every user to every selected database.
// Users are looked up by login; users not present in a database are counted
// as missing.
func RemoveUsers(ctx context.Context, deps Deps, p UserParams) (*UserReport, error) {
	if len(p.Users) == 0 {
		return nil, fmt.Errorf("%w: no users given", ErrInvalidParams)
	}
	return runUsers(ctx, deps, p, "remove", func(ctx context.Context, report *UserReport, database string, emails []string) error {
		log := deps.Logger.With().Str("database", database).Logger()

		refs, err := deps.Client.FindUserIDs(ctx, database, emails)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list users")
			report.Failed += len(emails)
			return nil
		}

		found := make(map[string]bool, len(refs))
		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return err
			}
			found[ref.Username] = true
			if err := deps.Client.RemoveUser(ctx, ref.UID, database); err != nil {
				log.Error().Err(err).Str("user", ref.Username).Str("uid", ref.UID).Msg("Failed to remove user")
				report.Failed++
				continue
			}
			log.Info().Str("user", ref.Username).Msg("Removed user")
			report.Succeeded++
		}

		for _, email := range emails {
			if !found[email] {
				log.Warn().Str("user", email).Msg("User not found in database")
				report.Missing++
			}
		}
		return nil
	})
}

type userAction func(ctx context.Context, report *UserReport, database string, emails []string) error

func runUsers(ctx context.Context, deps Deps, p UserParams, action string, fn userAction) (*UserReport, error) {
	criteria, err := p.Selection.criteria()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	log := deps.Logger.With().Str("action", action).Logger()
	report := &UserReport{}

	targets, ok := selectTargets(log, deps.Databases, criteria)
	if !ok {
		return report, nil
	}
	for _, t := range targets {
		report.Selected = append(report.Selected, t.Name)
	}

	if err := deps.Client.Login(ctx, deps.Username, deps.Password); err != nil {
		return report, fmt.Errorf("login failed: %w", err)
	}

	emails := p.emails()
	for _, db := range report.Selected {
		if err := fn(ctx, report, db, emails); err != nil {
			return report, err
		}
	}

	log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("missing", report.Missing).
		Msg("User changes finished")

	return report, nil
}

// ListUsers returns the users of every selected database. A database whose
// listing fails is reported with its error and the rest still run.
func ListUsers(ctx context.Context, deps Deps, sel Selection) ([]UserListing, error) {
	criteria, err := sel.criteria()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	log := deps.Logger.With().Str("action", "list").Logger()

	targets, ok := selectTargets(log, deps.Databases, criteria)
	if !ok {
		return nil, nil
	}

	if err := deps.Client.Login(ctx, deps.Username, deps.Password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	listings := make([]UserListing, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return listings, err
		}
		users, err := deps.Client.ListUsers(ctx, t.Name)
		if err != nil {
			log.Error().Err(err).Str("database", t.Name).Msg("Failed to list users")
		}
		listings = append(listings, UserListing{Database: t.Name, Users: users, Err: err})
	}
	return listings, nil
}
