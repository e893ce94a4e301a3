// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"udm-tms-service/internal/seed"
	"udm-tms-service/internal/store"

	"github.com/stretchr/testify/require"
)

// New returns a migrated, empty in-memory store that is closed when the test ends
func New(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.NewStore(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// Seeded returns an in-memory store holding the demo fixture set
func Seeded(t *testing.T) (*store.Store, *seed.Summary) {
	t.Helper()

	st := New(t)
	sum, err := seed.Load(context.Background(), st, time.Now())
	require.NoError(t, err)
	return st, sum
}

// RejectComponentUpdates makes every later UPDATE of the component with rid fail
func RejectComponentUpdates(t *testing.T, st *store.Store, rid string) {
	t.Helper()

	_, err := st.Exec(context.Background(), fmt.Sprintf(`
		CREATE TRIGGER reject_update_%s BEFORE UPDATE ON components
		WHEN OLD.rid = '%s'
		BEGIN
			SELECT RAISE(ABORT, 'component %s is read-only');
		END`, strings.ReplaceAll(rid, "-", "_"), rid, rid))
	require.NoError(t, err)
}
