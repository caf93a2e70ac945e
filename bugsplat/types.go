package bugsplat

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// Record is one row of a listing endpoint. Numbers are kept as json.Number
// so a record re-encodes exactly as it was received.
type Record map[string]any

// ID returns the record's id field as a string
func (r Record) ID() string {
	return stringValue(r["id"])
}

// Database returns the record's database field, if any
func (r Record) Database() string {
	return stringValue(r["database"])
}

// String returns any field as a string
func (r Record) String(key string) string {
	return stringValue(r[key])
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case json.Number:
		return t.String()
	}
	return cast.ToString(v)
}

// Page is the first element of a listing response
type Page struct {
	Database string   `json:"Database"`
	Rows     []Record `json:"Rows"`
}

// UserRef identifies a user inside one database
type UserRef struct {
	UID      string
	Username string
}

// Email builds a login address, appending domain to bare user names.
func Email(user, domain string) string {
	if domain == "" || strings.Contains(user, "@") {
		return user
	}
	return user + "@" + domain
}
