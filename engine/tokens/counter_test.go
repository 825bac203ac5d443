package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhitespace(t *testing.T) {
	counter := Whitespace{}

	t.Run("Should count whitespace-delimited tokens", func(t *testing.T) {
		assert.Equal(t, 5, counter.Count("one two three four five"))
	})

	t.Run("Should collapse runs of whitespace", func(t *testing.T) {
		assert.Equal(t, 3, counter.Count("a \t b\n\n c"))
	})

	t.Run("Should return zero for empty and blank text", func(t *testing.T) {
		assert.Equal(t, 0, counter.Count(""))
		assert.Equal(t, 0, counter.Count("   \n\t  "))
	})
}

func TestHeuristic(t *testing.T) {
	counter := Heuristic{}

	t.Run("Should estimate one token per four characters", func(t *testing.T) {
		assert.Equal(t, 10, counter.Count(strings.Repeat("x", 40)))
	})

	t.Run("Should floor at one token", func(t *testing.T) {
		assert.Equal(t, 1, counter.Count(""))
		assert.Equal(t, 1, counter.Count("abc"))
	})
}

func TestCounterFunc(t *testing.T) {
	t.Run("Should adapt a plain function", func(t *testing.T) {
		counter := CounterFunc(func(text string) int { return len(text) })
		assert.Equal(t, 4, counter.Count("abcd"))
	})
}

func TestCached(t *testing.T) {
	t.Run("Should delegate to the inner counter", func(t *testing.T) {
		cached, err := NewCached(Whitespace{}, 128)
		require.NoError(t, err)
		defer cached.Close()

		assert.Equal(t, 3, cached.Count("a b c"))
		assert.Equal(t, 3, cached.Count("a b c"))
	})

	t.Run("Should serve repeated counts without recomputing", func(t *testing.T) {
		calls := 0
		inner := CounterFunc(func(text string) int {
			calls++
			return len(strings.Fields(text))
		})
		cached, err := NewCached(inner, 128)
		require.NoError(t, err)
		defer cached.Close()

		first := cached.Count("repeat me twice")
		// ristretto admits asynchronously; flush before the second read.
		cached.cache.Wait()
		second := cached.Count("repeat me twice")

		assert.Equal(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("Should reject nil inner counter", func(t *testing.T) {
		_, err := NewCached(nil, 16)
		require.Error(t, err)
	})
}

func TestTiktoken(t *testing.T) {
	t.Run("Should resolve known model names to encodings", func(t *testing.T) {
		assert.Equal(t, "cl100k_base", encodingNameForModel("gpt-4"))
		assert.Equal(t, "p50k_base", encodingNameForModel("text-davinci-003"))
		assert.Equal(t, "cl100k_base", encodingNameForModel("some-unknown-model"))
	})

	t.Run("Should count tokens with the resolved encoding", func(t *testing.T) {
		counter, err := NewTiktoken("cl100k_base")
		if err != nil {
			t.Skipf("tiktoken encoding unavailable: %v", err)
		}
		assert.Equal(t, "cl100k_base", counter.Encoding())
		assert.Greater(t, counter.Count("hello world"), 0)
		assert.Equal(t, 0, counter.Count(""))
	})
}
