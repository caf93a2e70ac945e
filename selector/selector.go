// Package selector resolves database names and tag criteria into the ordered
// list of BugSplat databases a command operates on.
package selector

import (
	"fmt"
	"strings"

	"github.com/s0up4200/splatctl/config"
)

// DefaultTag is used when neither databases nor tags are requested
const DefaultTag = "default"

// MatchMode decides how requested tags are compared to a database's tags
type MatchMode string

const (
	// MatchAll requires the database to carry every requested tag
	MatchAll MatchMode = "all"
	// MatchAny requires the database to carry at least one requested tag
	MatchAny MatchMode = "any"
)

// ParseMatchMode parses "all" or "any". An empty string means MatchAll.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MatchAll):
		return MatchAll, nil
	case string(MatchAny):
		return MatchAny, nil
	default:
		return "", fmt.Errorf("invalid match mode: %s (must be 'any' or 'all')", s)
	}
}

// Criteria describes which databases to select
type Criteria struct {
	Databases  []string
	Tags       []string
	Mode       MatchMode
	DefaultTag string
}

// Select returns the configured databases matching c, in configuration order.
// Databases named explicitly come first, then tag matches; a database that
// qualifies both ways is returned once.
func Select(dbs []config.Database, c Criteria) []config.Database {
	tags := c.Tags
	if len(c.Databases) == 0 && len(tags) == 0 {
		def := c.DefaultTag
		if def == "" {
			def = DefaultTag
		}
		tags = []string{def}
	}

	wanted := make(map[string]bool, len(c.Databases))
	for _, name := range c.Databases {
		wanted[name] = true
	}

	var selected []config.Database
	seen := make(map[string]bool)
	add := func(db config.Database) {
		if seen[db.Name] {
			return
		}
		seen[db.Name] = true
		selected = append(selected, db)
	}

	for _, db := range dbs {
		if wanted[db.Name] {
			add(db)
		}
	}

	if len(tags) > 0 {
		for _, db := range dbs {
			if matches(db, tags, c.Mode) {
				add(db)
			}
		}
	}

	return selected
}

func matches(db config.Database, tags []string, mode MatchMode) bool {
	if mode == MatchAny {
		for _, tag := range tags {
			if db.HasTag(tag) {
				return true
			}
		}
		return false
	}

	for _, tag := range tags {
		if !db.HasTag(tag) {
			return false
		}
	}
	return true
}

// Names returns the database names in order
func Names(dbs []config.Database) []string {
	names := make([]string, len(dbs))
	for i, db := range dbs {
		names[i] = db.Name
	}
	return names
}

// Unknown returns requested names that are not configured
func Unknown(dbs []config.Database, requested []string) []string {
	known := make(map[string]bool, len(dbs))
	for _, db := range dbs {
		known[db.Name] = true
	}
	var missing []string
	for _, name := range requested {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
