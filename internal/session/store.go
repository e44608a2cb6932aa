package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStorageUnavailable is returned by persistence operations when no
	// snapshot store was configured or it could not be reached at startup.
	ErrStorageUnavailable = errors.New("session storage unavailable")

	// ErrSnapshotNotFound is returned when a snapshot key does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// TranscriptMessage is the persisted form of one transcript entry.
type TranscriptMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Snapshot is one persisted, timestamped copy of a transcript. The session
// id is stored as an explicit field rather than re-derived from the
// storage key.
type Snapshot struct {
	SessionID string              `json:"session_id"`
	SavedAt   time.Time           `json:"timestamp"`
	Messages  []TranscriptMessage `json:"chat_history"`
}

// SnapshotInfo describes a stored snapshot without its messages.
type SnapshotInfo struct {
	Key          string    `json:"blob_name"`
	SessionID    string    `json:"session_id"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// SnapshotStore persists transcript snapshots. Snapshots are immutable from
// the manager's perspective: each Save produces the store's current copy for
// a session id, and switching sessions never deletes prior data.
type SnapshotStore interface {
	// Save persists the messages under the session id and returns the
	// storage key.
	Save(ctx context.Context, sessionID string, messages []TranscriptMessage) (string, error)

	// Load retrieves a snapshot by storage key. Returns ErrSnapshotNotFound
	// for a missing key.
	Load(ctx context.Context, key string) (*Snapshot, error)

	// List returns stored snapshots, newest first.
	List(ctx context.Context) ([]SnapshotInfo, error)

	// Delete removes a snapshot by storage key. Returns false when the key
	// does not exist.
	Delete(ctx context.Context, key string) (bool, error)
}
