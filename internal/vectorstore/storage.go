package vectorstore

import (
	"context"
	"regexp"
)

// Snapshot is the persisted form of an Index.
type Snapshot struct {
	Fingerprint string      `json:"fingerprint"`
	Embedder    string      `json:"embedder"`
	Dimension   int         `json:"dimension"`
	Chunks      []string    `json:"chunks"`
	Vectors     [][]float64 `json:"vectors"`
}

// Storage persists per-user index snapshots. Keys passed in are already
// sanitized. Load returns domain.ErrNotFound when nothing is stored.
type Storage interface {
	Save(ctx context.Context, key string, snap Snapshot) error
	Load(ctx context.Context, key string) (*Snapshot, error)
}

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SanitizeUserID makes a user id safe for file paths, collection names and
// keys by replacing every character outside [A-Za-z0-9_-] with '_'.
// An empty id maps to "default".
func SanitizeUserID(userID string) string {
	if userID == "" {
		return "default"
	}
	return unsafeIDChars.ReplaceAllString(userID, "_")
}
