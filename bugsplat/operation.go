package bugsplat

import (
	"fmt"
	"net/url"
	"strings"
)

// Operation selects a listing endpoint. The set of operations is closed:
// only the constructors in this package can produce one.
type Operation interface {
	// Name is the endpoint name, e.g. "allCrash"
	Name() string
	// SupportsArchives reports whether rows are crashes with downloadable dumps
	SupportsArchives() bool
	query() url.Values
}

type simpleOp struct {
	name     string
	archives bool
}

func (o simpleOp) Name() string           { return o.name }
func (o simpleOp) SupportsArchives() bool { return o.archives }
func (o simpleOp) query() url.Values      { return nil }

type keyCrashOp struct {
	stackKeyID string
}

func (o keyCrashOp) Name() string           { return "keycrash" }
func (o keyCrashOp) SupportsArchives() bool { return true }
func (o keyCrashOp) query() url.Values {
	return url.Values{"stackKeyId": {o.stackKeyID}}
}

// Users lists the users of a database
func Users() Operation { return simpleOp{name: "users"} }

// AllCrash lists individual crashes
func AllCrash() Operation { return simpleOp{name: "allCrash", archives: true} }

// Summary lists crashes grouped by stack key
func Summary() Operation { return simpleOp{name: "summary"} }

// Versions lists application versions
func Versions() Operation { return simpleOp{name: "versions"} }

// KeyCrash lists the crashes of one stack key
func KeyCrash(stackKeyID string) Operation { return keyCrashOp{stackKeyID: stackKeyID} }

// ParseOperation maps a command name to an Operation
func ParseOperation(name, stackKeyID string) (Operation, error) {
	switch strings.ToLower(name) {
	case "users", "userlist":
		return Users(), nil
	case "allcrash", "crashes":
		return AllCrash(), nil
	case "summary":
		return Summary(), nil
	case "versions":
		return Versions(), nil
	case "keycrash":
		if stackKeyID == "" {
			return nil, fmt.Errorf("keycrash requires a stack key id")
		}
		return KeyCrash(stackKeyID), nil
	default:
		return nil, fmt.Errorf("unknown operation: %s", name)
	}
}
