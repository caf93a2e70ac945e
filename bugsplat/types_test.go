package bugsplat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessors(t *testing.T) {
	r := Record{
		"id":       json.Number("9007199254740993"),
		"database": "Game_QA",
		"count":    3,
		"nothing":  nil,
	}

	assert.Equal(t, "9007199254740993", r.ID())
	assert.Equal(t, "Game_QA", r.Database())
	assert.Equal(t, "3", r.String("count"))
	assert.Equal(t, "", r.String("nothing"))
	assert.Equal(t, "", r.String("missing"))
}

func TestEmail(t *testing.T) {
	tests := []struct {
		user   string
		domain string
		want   string
	}{
		{"fred", "example.com", "fred@example.com"},
		{"fred@other.org", "example.com", "fred@other.org"},
		{"fred", "", "fred"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Email(tt.user, tt.domain))
	}
}

func TestMatchUsers(t *testing.T) {
	rows := []Record{
		{"uId": json.Number("1"), "username": "a@example.com"},
		{"uId": json.Number("2"), "username": "b@example.com"},
		{"uId": json.Number("3"), "username": "A@example.com"},
	}

	refs := matchUsers(rows, []string{"a@example.com", "z@example.com"})
	assert.Equal(t, []UserRef{{UID: "1", Username: "a@example.com"}}, refs)
	assert.Empty(t, matchUsers(rows, nil))
}

func TestCheckAck(t *testing.T) {
	assert.NoError(t, checkAck("add user x", "Game", []byte("1")))

	err := checkAck("add user x", "Game", []byte("1\n"))
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "add user x", rej.Action)
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		name     string
		stackKey string
		want     string
		archives bool
		wantErr  bool
	}{
		{name: "allcrash", want: "allCrash", archives: true},
		{name: "crashes", want: "allCrash", archives: true},
		{name: "Summary", want: "summary"},
		{name: "versions", want: "versions"},
		{name: "userlist", want: "users"},
		{name: "keycrash", stackKey: "12", want: "keycrash", archives: true},
		{name: "keycrash", wantErr: true},
		{name: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := ParseOperation(tt.name, tt.stackKey)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, op.Name())
			assert.Equal(t, tt.archives, op.SupportsArchives())
		})
	}

	assert.Equal(t, "12", KeyCrash("12").query().Get("stackKeyId"))
	assert.Nil(t, AllCrash().query())
}

func TestDecodeCrashDetail(t *testing.T) {
	_, err := decodeCrashDetail([]byte("  "))
	assert.ErrorIs(t, err, ErrMalformedPage)

	_, err = decodeCrashDetail([]byte("[]"))
	assert.ErrorIs(t, err, ErrMalformedPage)

	rec, err := decodeCrashDetail([]byte(`{"id": 5, "s3URL": "https://s3/x.zip"}`))
	require.NoError(t, err)
	assert.Equal(t, "5", rec.ID())
}
