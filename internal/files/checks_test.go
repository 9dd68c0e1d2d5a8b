package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exportcheck/internal/shared/testutil"
)

func TestDirectoryChecker(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	c := NewDirectoryChecker(logger)
	dir := t.TempDir()

	t.Run("readable", func(t *testing.T) {
		assert.NoError(t, c.Readable(dir))
		assert.Error(t, c.Readable(filepath.Join(dir, "missing")))

		file := testutil.WriteFile(t, dir, "plain.txt", "x", time.Now())
		assert.Error(t, c.Readable(file))
	})

	t.Run("writable creates the directory", func(t *testing.T) {
		target := filepath.Join(dir, "reports", "nested")
		require.NoError(t, c.Writable(target))

		entries, err := os.ReadDir(target)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("count csv", func(t *testing.T) {
		csvDir := t.TempDir()
		testutil.WriteFile(t, csvDir, "a.csv", "h\n", time.Now())
		testutil.WriteFile(t, csvDir, "b.csv", "h\n", time.Now())
		testutil.WriteFile(t, csvDir, "c.txt", "h\n", time.Now())

		n, err := c.CountCSV(csvDir)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}
