package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkforge/chunkforge/engine/chunk"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCmd(t *testing.T) {
	t.Run("Should print build information", func(t *testing.T) {
		out, err := runCommand(t, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "chunkforge dev")
	})
}

func TestSplitCmd(t *testing.T) {
	t.Run("Should split a text file into paragraph chunks", func(t *testing.T) {
		rules := writeFile(t, "rules.yaml", "txt:\n  strategy: by_paragraph\n")
		doc := writeFile(t, "doc.txt", "First paragraph.\n\nSecond paragraph.\n")
		out, err := runCommand(t, "split", doc, "--rules", rules, "--format", "json", "--doc-id", "doc-1")
		require.NoError(t, err)

		var chunks []chunk.Chunk
		require.NoError(t, json.Unmarshal([]byte(out), &chunks))
		require.Len(t, chunks, 2)
		assert.Equal(t, "First paragraph.", chunks[0].Text)
		assert.Equal(t, "Second paragraph.", chunks[1].Text)
		assert.Equal(t, "doc-1", chunks[0].DocID)
	})
	t.Run("Should reject an unknown output format", func(t *testing.T) {
		doc := writeFile(t, "doc.txt", "text")
		_, err := runCommand(t, "split", doc, "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown output format")
	})
	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := runCommand(t, "split", filepath.Join(t.TempDir(), "absent.txt"))
		require.Error(t, err)
	})
}

func TestRulesValidateCmd(t *testing.T) {
	t.Run("Should report every rule in a valid table", func(t *testing.T) {
		rules := writeFile(t, "rules.yaml",
			"default:\n  strategy: by_paragraph\n  min_tokens: 50\n  max_tokens: 300\n  overlap: 20\nemail:\n  strategy: by_email_block\n  max_tokens: 200\n")
		out, err := runCommand(t, "rules", "validate", "--rules", rules)
		require.NoError(t, err)
		assert.Contains(t, out, "2 rules ok")
		assert.Contains(t, out, "by_email_block")
	})
	t.Run("Should fail on an invalid rule", func(t *testing.T) {
		rules := writeFile(t, "rules.yaml",
			"bad:\n  strategy: by_paragraph\n  min_tokens: 300\n  max_tokens: 50\n")
		_, err := runCommand(t, "rules", "validate", "--rules", rules)
		require.Error(t, err)
		assert.ErrorIs(t, err, chunk.ErrInvalidRule)
	})
	t.Run("Should fail when no table is configured", func(t *testing.T) {
		_, err := runCommand(t, "rules", "validate")
		require.Error(t, err)
	})
}
