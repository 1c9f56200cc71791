// Package fingerprint derives the cache keys that make pipeline stages
// resumable. A stage's fingerprint covers its name, its effective
// configuration, the digests of its upstream artifacts, and the source
// identity, so any input change invalidates the cached result.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Compute returns a hex-encoded sha256 fingerprint. The config value is
// serialized as JSON, so it must be a JSON-encodable struct; upstream digests
// are sorted to make the result independent of argument order.
func Compute(stage string, config any, upstreamDigests []string, sourceIdentity string) (string, error) {
	encoded, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("encode stage config: %w", err)
	}

	sorted := append([]string(nil), upstreamDigests...)
	sort.Strings(sorted)

	hash := sha256.New()
	fmt.Fprintf(hash, "stage=%s\n", stage)
	fmt.Fprintf(hash, "config=%s\n", encoded)
	for _, digest := range sorted {
		fmt.Fprintf(hash, "upstream=%s\n", digest)
	}
	fmt.Fprintf(hash, "source=%s\n", sourceIdentity)
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// File returns the hex-encoded sha256 digest of a file's contents.
func File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("digest artifact: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
