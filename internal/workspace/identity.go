package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"path/filepath"
	"strings"
)

// ID derives a stable short identifier from an absolute workspace path.
// The path is normalized (forward slashes, no trailing separator) before
// hashing so that equivalent paths on different platforms collapse to the
// same workspace_id.
func ID(absPath string) string {
	normalized := Normalize(absPath)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// Normalize converts an absolute path to forward-slash form with no
// trailing separator, as required by the chunk record's path/workspace_id
// fields.
func Normalize(absPath string) string {
	cleaned := filepath.Clean(absPath)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if len(cleaned) > 1 {
		cleaned = strings.TrimSuffix(cleaned, "/")
	}
	return cleaned
}

// LockKey derives the 32-bit integer used as the advisory lock key for a
// workspace_id. FNV-1a keeps the mapping deterministic and cheap; collision
// between two workspace_ids only causes serialization, never corruption.
func LockKey(workspaceID string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(workspaceID))
	return int32(h.Sum32())
}

// RelPath normalizes a file path to be workspace-relative with forward
// slashes, matching the chunk record's `path` field.
func RelPath(root, absPath string) (string, error) {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(rel, "\\", "/"), nil
}
