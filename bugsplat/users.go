package bugsplat

import (
	"context"
	"net/url"
)

// usersPageSize is the largest page the users endpoint returns
const usersPageSize = 1000

// AddUser grants email access to database. BugSplat answers "1" on success.
func (c *Client) AddUser(ctx context.Context, email, database string) error {
	params := url.Values{}
	params.Set("insert", "true")
	params.Set("username", email)
	params.Set("database", database)

	body, err := c.get(ctx, "users", params.Encode())
	if err != nil {
		return err
	}
	return checkAck("add user "+email, database, body)
}

// RemoveUser revokes the access of user uid to database
func (c *Client) RemoveUser(ctx context.Context, uid, database string) error {
	params := url.Values{}
	params.Set("uId", uid)
	params.Set("database", database)

	body, err := c.get(ctx, "users", "delete&"+params.Encode())
	if err != nil {
		return err
	}
	return checkAck("remove user "+uid, database, body)
}

// ListUsers returns the first page of users of a database
func (c *Client) ListUsers(ctx context.Context, database string) ([]Record, error) {
	page, err := c.FetchPage(ctx, Users(), database, usersPageSize, 0)
	if err != nil {
		return nil, err
	}
	return page.Rows, nil
}

// FindUserIDs returns the users of database whose login is one of emails
func (c *Client) FindUserIDs(ctx context.Context, database string, emails []string) ([]UserRef, error) {
	rows, err := c.ListUsers(ctx, database)
	if err != nil {
		return nil, err
	}
	return matchUsers(rows, emails), nil
}

func matchUsers(rows []Record, emails []string) []UserRef {
	wanted := make(map[string]bool, len(emails))
	for _, e := range emails {
		wanted[e] = true
	}

	var refs []UserRef
	for _, row := range rows {
		username := row.String("username")
		if wanted[username] {
			refs = append(refs, UserRef{UID: row.String("uId"), Username: username})
		}
	}
	return refs
}

func checkAck(action, database string, body []byte) error {
	if string(body) == "1" {
		return nil
	}
	return &RejectedError{Action: action, Database: database, Body: excerpt(body)}
}
