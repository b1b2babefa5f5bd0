// Package store defines the record store every backend implements.
//
// A Store routes each call to the collection of the record kind involved.
// Single-record operations are as atomic as the engine makes them; nothing
// spans more than one record, and GetSubs reads subscriptions and names in
// two separate steps.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mangatrack/internal/config"
	"mangatrack/internal/records"
)

var (
	// ErrNoBackend means configuration selected no storage engine.
	ErrNoBackend = config.ErrNoBackend
	// ErrUnavailable wraps driver errors caused by an unreachable engine.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrClosed is returned by every call made after Close.
	ErrClosed = errors.New("store is closed")
)

type Store interface {
	// Add inserts rec as a new record of its kind.
	Add(ctx context.Context, rec records.Record) error

	// Get returns the first record of kind matching key, or nil, nil when
	// nothing matches.
	Get(ctx context.Context, kind records.Kind, key records.Key) (records.Record, error)

	// GetAll returns every record of kind. An empty collection gives an
	// empty slice.
	GetAll(ctx context.Context, kind records.Kind) ([]records.Record, error)

	// Erase deletes at most one record whose fields all equal rec's.
	// Erasing a record that is not stored is not an error.
	Erase(ctx context.Context, rec records.Record) error

	// GetChapterFileByID finds the chapter file whose file_unique_id or
	// cbz_unique_id equals id. Returns nil, nil when there is none.
	GetChapterFileByID(ctx context.Context, id string) (*records.ChapterFile, error)

	// GetSubs returns the names of the manga userID is subscribed to, in
	// subscription order. With filters, only names containing one of them
	// (case-insensitively) are kept. Subscriptions without a cached name
	// are skipped.
	GetSubs(ctx context.Context, userID string, filters ...string) ([]records.MangaName, error)

	// EraseSubs deletes every subscription of userID and returns how many
	// were deleted.
	EraseSubs(ctx context.Context, userID string) (int64, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NameFilters drops empty filter strings. A nil result means no filtering.
func NameFilters(filters []string) []string {
	var out []string
	for _, f := range filters {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// MatchesAny reports whether name contains any of filters, ignoring case.
// No filters matches everything.
func MatchesAny(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, f := range filters {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// WithTimeout bounds ctx by d unless the caller already set a deadline.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// CheckKind fails with records.ErrUnsupportedType for unknown kinds.
func CheckKind(kind records.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", records.ErrUnsupportedType, string(kind))
	}
	return nil
}
