// Package export downloads the crash archives referenced by a result set.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/s0up4200/splatctl/fetcher"
)

var archivesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "splatctl_archives_total",
	Help: "Crash archives by outcome (downloaded, skipped, failed)",
}, []string{"outcome"})

// ArchiveSource resolves and streams crash archives
type ArchiveSource interface {
	ResolveArchiveURL(ctx context.Context, database, id string) (string, error)
	DownloadArchive(ctx context.Context, archiveURL string, w io.Writer) (int64, error)
}

// Summary counts the outcome of an export
type Summary struct {
	Downloaded int
	Skipped    int
	Failed     int
	Bytes      int64
}

// Exporter writes archives into a directory
type Exporter struct {
	source    ArchiveSource
	dir       string
	overwrite bool
	logger    zerolog.Logger
}

// New creates an Exporter writing into dir. Existing files are kept unless
// overwrite is set.
func New(source ArchiveSource, dir string, overwrite bool, logger zerolog.Logger) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{
		source:    source,
		dir:       dir,
		overwrite: overwrite,
		logger:    logger,
	}
}

// ExportAll downloads the archive of every record in rs. A failing record is
// logged and counted; it never stops the export. Only a canceled context or
// an unusable directory ends it early.
func (e *Exporter) ExportAll(ctx context.Context, rs fetcher.ResultSet) (Summary, error) {
	var sum Summary

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return sum, fmt.Errorf("failed to create export directory: %w", err)
	}

	for _, target := range rs {
		for _, row := range target.Rows {
			if err := ctx.Err(); err != nil {
				return sum, err
			}

			database := row.Database()
			if database == "" {
				database = target.Database
			}
			id := row.ID()

			log := e.logger.With().Str("database", database).Str("id", id).Logger()

			if id == "" {
				log.Warn().Msg("Record has no id, skipping archive")
				sum.Failed++
				archivesTotal.WithLabelValues("failed").Inc()
				continue
			}

			path := filepath.Join(e.dir, FileName(database, id))
			if !e.overwrite {
				if _, err := os.Stat(path); err == nil {
					log.Debug().Str("path", path).Msg("Archive exists, skipping")
					sum.Skipped++
					archivesTotal.WithLabelValues("skipped").Inc()
					continue
				}
			}

			n, err := e.exportOne(ctx, database, id, path)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return sum, err
				}
				log.Error().Err(err).Msg("Failed to export crash archive")
				sum.Failed++
				archivesTotal.WithLabelValues("failed").Inc()
				continue
			}

			log.Info().Str("path", path).Int64("bytes", n).Msg("Downloaded crash archive")
			sum.Downloaded++
			sum.Bytes += n
			archivesTotal.WithLabelValues("downloaded").Inc()
		}
	}

	return sum, nil
}

func (e *Exporter) exportOne(ctx context.Context, database, id, path string) (int64, error) {
	archiveURL, err := e.source.ResolveArchiveURL(ctx, database, id)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(e.dir, ".splatctl-*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := e.source.DownloadArchive(ctx, archiveURL, tmp)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("download %s: %w", archiveURL, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("failed to move archive into place: %w", err)
	}

	return n, nil
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

// FileName returns the archive file name for a crash
func FileName(database, id string) string {
	return unsafeChars.Replace(database) + "_" + unsafeChars.Replace(id) + ".zip"
}
