package cache

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("tagflow.result.cache.hash.key.00")

// Key hashes the names and contents of the given files, plus any extra
// tags, into a stable cache key. File order does not matter; any content or
// tag change changes the key. Tags let callers bind the key to analysis
// inputs that are not files, like the configured allocator table.
func Key(files []string, tags ...string) (string, error) {
	h, err := highwayhash.New(hashKey)
	if err != nil {
		return "", fmt.Errorf("initializing hash: %w", err)
	}

	sorted := slices.Clone(files)
	slices.Sort(sorted)
	for _, path := range sorted {
		io.WriteString(h, path)
		h.Write([]byte{0})
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("hashing %s: %w", path, err)
		}
		f.Close()
		h.Write([]byte{0})
	}
	for _, tag := range tags {
		io.WriteString(h, tag)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
