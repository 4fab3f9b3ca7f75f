package usage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func newTestReconciler(r DateRange) *Reconciler {
	return New(Options{Range: r}, zerolog.Nop())
}
