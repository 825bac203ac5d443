package vectordb

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldConnectAndDeriveSetKey", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, err := newRedisStore(ctx, &Config{
			Provider:   ProviderRedis,
			DSN:        "redis://" + mr.Addr(),
			Collection: "My Chunks",
			Dimension:  4,
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close(ctx) })
		rs, ok := store.(*redisStore)
		require.True(t, ok)
		assert.Equal(t, "my_chunks", rs.setKey)
		assert.Equal(t, redisDefaultMaxTopK, rs.maxTopK)
	})

	t.Run("ShouldRejectInvalidDSN", func(t *testing.T) {
		_, err := newRedisStore(ctx, &Config{Provider: ProviderRedis, DSN: "http://nope", Dimension: 4})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid dsn")
	})

	t.Run("ShouldFailWhenServerUnreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := newRedisStore(ctx, &Config{Provider: ProviderRedis, DSN: "redis://" + addr, Dimension: 4})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ping failed")
	})
}

func TestDetermineRedisKey(t *testing.T) {
	t.Run("ShouldPreferCollection", func(t *testing.T) {
		cfg := &Config{Collection: "chunks", Table: "fallback"}
		assert.Equal(t, "chunks", determineRedisKey(cfg))
	})

	t.Run("ShouldFallBackToTable", func(t *testing.T) {
		cfg := &Config{Table: "fallback"}
		assert.Equal(t, "fallback", determineRedisKey(cfg))
	})

	t.Run("ShouldDefaultWhenBothEmpty", func(t *testing.T) {
		assert.Equal(t, redisDefaultVectorKey, determineRedisKey(&Config{}))
	})
}

func TestSanitizeRedisKey(t *testing.T) {
	t.Run("ShouldLowercaseAndKeepSeparators", func(t *testing.T) {
		assert.Equal(t, "app:chunks-v1_k", sanitizeRedisKey("App:Chunks-V1_K"))
	})

	t.Run("ShouldReplaceDisallowedRunes", func(t *testing.T) {
		assert.Equal(t, "my_chunks", sanitizeRedisKey("My Chunks"))
	})

	t.Run("ShouldTrimSeparatorEdges", func(t *testing.T) {
		assert.Equal(t, "core", sanitizeRedisKey("__core--"))
	})

	t.Run("ShouldReturnEmptyForBlank", func(t *testing.T) {
		assert.Empty(t, sanitizeRedisKey("   "))
	})
}

func TestSanitizeAttributeKey(t *testing.T) {
	t.Run("ShouldLowercaseAndUnderscore", func(t *testing.T) {
		assert.Equal(t, "doc_type", sanitizeAttributeKey("Doc Type"))
	})

	t.Run("ShouldFallBackForBlankKey", func(t *testing.T) {
		assert.Equal(t, "unknown", sanitizeAttributeKey("  "))
	})

	t.Run("ShouldFallBackWhenNothingSurvives", func(t *testing.T) {
		assert.Equal(t, "unknown", sanitizeAttributeKey("!!!"))
	})
}

func TestBuildRedisFilter(t *testing.T) {
	t.Run("ShouldJoinClausesSortedByKey", func(t *testing.T) {
		filter := buildRedisFilter(map[string]string{
			"doc_type": "markdown",
			"author":   "ada",
		})
		assert.Equal(t, `.meta_author == "ada" && .meta_doc_type == "markdown"`, filter)
	})

	t.Run("ShouldEscapeQuotedValues", func(t *testing.T) {
		filter := buildRedisFilter(map[string]string{"title": `say "hi"`})
		assert.Equal(t, `.meta_title == "say \"hi\""`, filter)
	})

	t.Run("ShouldReturnEmptyForNoFilters", func(t *testing.T) {
		assert.Empty(t, buildRedisFilter(nil))
	})
}

func TestEscapeFilterValue(t *testing.T) {
	t.Run("ShouldEscapeBackslashesAndQuotes", func(t *testing.T) {
		assert.Equal(t, `a\\b\"c`, escapeFilterValue(`a\b"c`))
	})
}

func TestBuildRedisAttributes(t *testing.T) {
	t.Run("ShouldIncludeTextMetadataAndFlattenedKeys", func(t *testing.T) {
		record := Record{
			ID:       "a",
			Text:     "alpha",
			Metadata: map[string]any{"Doc Type": "markdown", "chunk_index": 3},
		}
		attrs := buildRedisAttributes(record)
		assert.Equal(t, "alpha", attrs[redisTextAttrKey])
		meta, ok := attrs[redisMetadataAttrKey].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "markdown", meta["Doc Type"])
		assert.Equal(t, "markdown", attrs["meta_doc_type"])
		assert.Equal(t, "3", attrs["meta_chunk_index"])
	})

	t.Run("ShouldEmitEmptyMetadataObjectForNil", func(t *testing.T) {
		attrs := buildRedisAttributes(Record{ID: "a", Text: "alpha"})
		meta, ok := attrs[redisMetadataAttrKey].(map[string]any)
		require.True(t, ok)
		assert.Empty(t, meta)
	})
}

func TestParseAttributeJSON(t *testing.T) {
	t.Run("ShouldExtractTextAndMetadata", func(t *testing.T) {
		text, meta, err := parseAttributeJSON(`{"text":"alpha","_metadata":{"doc_id":"doc-1"}}`)
		require.NoError(t, err)
		assert.Equal(t, "alpha", text)
		assert.Equal(t, "doc-1", meta["doc_id"])
	})

	t.Run("ShouldHandleEmptyPayload", func(t *testing.T) {
		text, meta, err := parseAttributeJSON("  ")
		require.NoError(t, err)
		assert.Empty(t, text)
		assert.NotNil(t, meta)
	})

	t.Run("ShouldFailOnMalformedJSON", func(t *testing.T) {
		_, _, err := parseAttributeJSON("{not json")
		require.Error(t, err)
	})
}

func TestChooseRedisMaxTopK(t *testing.T) {
	t.Run("ShouldDefaultWhenUnset", func(t *testing.T) {
		assert.Equal(t, redisDefaultMaxTopK, chooseRedisMaxTopK(0))
	})

	t.Run("ShouldKeepExplicitLimit", func(t *testing.T) {
		assert.Equal(t, 25, chooseRedisMaxTopK(25))
	})
}
