// Package bridge carries one hook request/response pair per connection over
// a local stream socket, with a hard deadline and mandatory fail-open
// degradation on the client side.
package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// SocketPath derives the socket location for a project directory, so
// concurrent hosts in different projects get independent pipelines.
func SocketPath(projectDir string) string {
	sum := sha256.Sum256([]byte(projectDir))
	name := "hookd-" + hex.EncodeToString(sum[:])[:8] + ".sock"
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, name)
	}
	return filepath.Join(os.TempDir(), name)
}
