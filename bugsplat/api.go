package bugsplat

import (
	"context"
	"io"
)

// API defines the BugSplat operations used by splatctl
type API interface {
	// Login performs the session handshake
	Login(ctx context.Context, username, password string) error

	// FetchPage fetches one page of a listing endpoint
	FetchPage(ctx context.Context, op Operation, database string, pageSize, pageNum int) (*Page, error)

	// AddUser grants a user access to a database
	AddUser(ctx context.Context, email, database string) error

	// RemoveUser revokes a user's access to a database
	RemoveUser(ctx context.Context, uid, database string) error

	// ListUsers returns the users of a database
	ListUsers(ctx context.Context, database string) ([]Record, error)

	// FindUserIDs looks up the ids of the given users in a database
	FindUserIDs(ctx context.Context, database string, emails []string) ([]UserRef, error)

	// ResolveArchiveURL returns the download location of a crash archive
	ResolveArchiveURL(ctx context.Context, database, id string) (string, error)

	// DownloadArchive streams a crash archive into w
	DownloadArchive(ctx context.Context, archiveURL string, w io.Writer) (int64, error)
}

var _ API = (*Client)(nil)
