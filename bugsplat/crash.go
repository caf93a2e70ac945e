package bugsplat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
)

// ResolveArchiveURL looks up the storage URL of a crash's minidump archive
func (c *Client) ResolveArchiveURL(ctx context.Context, database, id string) (string, error) {
	params := url.Values{}
	params.Set("id", id)
	params.Set("database", database)

	body, err := c.get(ctx, "individualCrash", "data&"+params.Encode())
	if err != nil {
		return "", err
	}

	detail, err := decodeCrashDetail(body)
	if err != nil {
		return "", err
	}

	archiveURL := detail.String("s3URL")
	if archiveURL == "" {
		return "", fmt.Errorf("%w: crash %s in %s", ErrNoArchive, id, database)
	}
	return archiveURL, nil
}

// decodeCrashDetail accepts either an object or an array holding one
func decodeCrashDetail(body []byte) (Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty crash detail", ErrMalformedPage)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if trimmed[0] == '[' {
		var list []Record
		if err := dec.Decode(&list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty crash detail", ErrMalformedPage)
		}
		return list[0], nil
	}

	var detail Record
	if err := dec.Decode(&detail); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	return detail, nil
}

// DownloadArchive streams archiveURL into w and returns the bytes written
func (c *Client) DownloadArchive(ctx context.Context, archiveURL string, w io.Writer) (int64, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req, "archive")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to stream archive: %w", err)
	}
	return n, nil
}
