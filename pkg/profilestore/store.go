// Package profilestore persists voice profiles keyed by user id.
//
// Every Store keeps the version a Save replaced so a bad enrollment can be
// rolled back with LoadBackup. Saves are all-or-nothing: a failing Save
// leaves both the current and the backup data unchanged.
//
// Implementations:
//
//   - FileStore: one JSON document (user → profile) with a ".backup"
//     sibling holding the previous document
//   - MemoryStore: in-process maps, for tests
//   - BadgerStore: BadgerDB, msgpack-encoded values
//   - BlobStore: one JSON object per user on a Blobs backend
//     (LocalBlobs on disk, S3Blobs on any S3-compatible service)
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

var (
	// ErrProfileNotFound is returned when no profile exists for a user.
	ErrProfileNotFound = errors.New("profilestore: profile not found")

	// ErrStoreIO wraps every storage backend failure.
	ErrStoreIO = errors.New("profilestore: storage failure")

	// ErrInvalidUser is returned for empty user ids and ids containing
	// path separators.
	ErrInvalidUser = errors.New("profilestore: invalid user id")
)

// Store is the profile persistence contract. Implementations are safe for
// concurrent use.
type Store interface {
	// Load returns the current profile of user, or ErrProfileNotFound.
	Load(ctx context.Context, user string) (*voiceprint.Profile, error)

	// Save replaces the profile of user, keeping the replaced version as
	// the backup.
	Save(ctx context.Context, user string, p *voiceprint.Profile) error

	// List returns the enrolled user ids in ascending order.
	List(ctx context.Context) ([]string, error)

	// LoadBackup returns the profile of user as it was before the last
	// Save, or ErrProfileNotFound if there is none.
	LoadBackup(ctx context.Context, user string) (*voiceprint.Profile, error)

	// Close releases any resources held by the store.
	Close() error
}

// ioError wraps err with ErrStoreIO.
func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreIO, op, err)
}

func notFound(user string) error {
	return fmt.Errorf("%w: %q", ErrProfileNotFound, user)
}

// checkUser validates a user id for use as a key or object name.
func checkUser(user string) error {
	if user == "" || strings.ContainsAny(user, "/\\") || user == "." || user == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	return nil
}
