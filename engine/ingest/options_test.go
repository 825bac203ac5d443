package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNormalized(t *testing.T) {
	t.Run("Should apply defaults to zero values", func(t *testing.T) {
		opts := (&Options{Root: " /data/docs "}).normalized()
		assert.Equal(t, "/data/docs", opts.Root)
		assert.Equal(t, defaultInclude, opts.Include)
		assert.Equal(t, defaultMaxFileSize, opts.MaxFileSize)
		assert.Equal(t, defaultMaxFiles, opts.MaxFiles)
		assert.Equal(t, defaultConcurrency, opts.Concurrency)
		assert.Equal(t, defaultBatchSize, opts.BatchSize)
		assert.Equal(t, StrategyUpsert, opts.Strategy)
	})
	t.Run("Should keep explicit values", func(t *testing.T) {
		opts := (&Options{
			Root:        "/data",
			Include:     []string{"**/*.md"},
			Exclude:     []string{"**/draft/**"},
			MaxFileSize: 512,
			MaxFiles:    3,
			Concurrency: 9,
			BatchSize:   7,
			Strategy:    StrategyReplace,
		}).normalized()
		assert.Equal(t, []string{"**/*.md"}, opts.Include)
		assert.Equal(t, []string{"**/draft/**"}, opts.Exclude)
		assert.Equal(t, int64(512), opts.MaxFileSize)
		assert.Equal(t, 3, opts.MaxFiles)
		assert.Equal(t, 9, opts.Concurrency)
		assert.Equal(t, 7, opts.BatchSize)
		assert.Equal(t, StrategyReplace, opts.Strategy)
	})
	t.Run("Should lowercase and trim the strategy", func(t *testing.T) {
		opts := (&Options{Root: "/data", Strategy: Strategy(" Replace ")}).normalized()
		assert.Equal(t, StrategyReplace, opts.Strategy)
	})
}

func TestOptionsValidate(t *testing.T) {
	t.Run("Should accept a normalized configuration", func(t *testing.T) {
		opts := (&Options{Root: "/data"}).normalized()
		require.NoError(t, opts.validate())
	})
	t.Run("Should reject a missing root", func(t *testing.T) {
		opts := (&Options{Root: "   "}).normalized()
		require.ErrorContains(t, opts.validate(), "root directory is required")
	})
	t.Run("Should reject an unknown strategy", func(t *testing.T) {
		opts := (&Options{Root: "/data", Strategy: "merge"}).normalized()
		require.ErrorContains(t, opts.validate(), `unknown strategy "merge"`)
	})
}
