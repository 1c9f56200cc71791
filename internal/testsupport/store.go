package testsupport

import (
	"path/filepath"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/state"
)

// MustOpenStore opens a state.Store under the test config's data directory
// and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *state.Store {
	t.Helper()

	store, err := state.Open(filepath.Join(cfg.Paths.DataDir, "clipforge.db"))
	if err != nil {
		t.Fatalf("state.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
