// Package registry records pipeline metadata for introspection — what
// pipelines are loaded, their derived context requirements, and when
// they were last (re)loaded. It never stores QC results or flags; those
// stay on the stream the façade returns to the caller.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"rove/internal/apperror"
	"rove/internal/pipeline"
)

// ErrNotFound is returned when a lookup names a pipeline the registry
// has no record of.
var ErrNotFound = errors.New("pipeline not registered")

// Entry is one row of pipeline metadata.
type Entry struct {
	Name        string
	NumLeading  uint8
	NumTrailing uint8
	StepCount   int
	Checksum    string
	SourcePath  string
	LoadedAt    time.Time
}

// Store persists and queries pipeline metadata.
type Store interface {
	Upsert(ctx context.Context, e Entry) error
	Get(ctx context.Context, name string) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, name string) error
}

// Checksum hashes a pipeline TOML file's raw bytes, so a registry
// consumer can tell whether a reload actually changed anything.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// EntryFromPipeline builds the registry row for a loaded pipeline.
func EntryFromPipeline(name, sourcePath string, content []byte, p pipeline.Pipeline, loadedAt time.Time) Entry {
	return Entry{
		Name:        name,
		NumLeading:  p.NumLeadingRequired,
		NumTrailing: p.NumTrailingRequired,
		StepCount:   len(p.Steps),
		Checksum:    Checksum(content),
		SourcePath:  sourcePath,
		LoadedAt:    loadedAt,
	}
}

// RegisterDir loads every pipeline in dir via pipeline.LoadDir and
// records an Entry per file in store. It does not affect the in-memory
// map a Scheduler uses to run pipelines; it exists purely so operators
// can ask "what's loaded and since when" without grepping a directory.
func RegisterDir(ctx context.Context, store Store, dir string, loadedAt time.Time) error {
	pipelines, err := pipeline.LoadDir(dir)
	if err != nil {
		return err
	}
	for name, p := range pipelines {
		sourcePath := filepath.Join(dir, name+".toml")
		content, err := os.ReadFile(sourcePath)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeIO, "reading pipeline file "+sourcePath)
		}
		entry := EntryFromPipeline(name, sourcePath, content, p, loadedAt)
		if err := store.Upsert(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
