package query

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryFile_BuiltinsOnly(t *testing.T) {
	d, err := NewDictionaryFile("", nil)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "unique health id", d.Abbreviations()["uhid"])
	assert.Contains(t, d.Synonyms()["login"], "sign in")
}

func TestDictionaryFile_OverridesMergeOverBuiltins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.yaml")
	content := `
abbreviations:
  otp: one time pin
  dx: diagnosis
synonyms:
  crash:
    - blue screen
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := NewDictionaryFile(path, nil)
	require.NoError(t, err)
	defer d.Close()

	// Overridden entry wins, new entry appears, untouched builtin survives.
	assert.Equal(t, "one time pin", d.Abbreviations()["otp"])
	assert.Equal(t, "diagnosis", d.Abbreviations()["dx"])
	assert.Equal(t, "unique health id", d.Abbreviations()["uhid"])
	assert.Equal(t, []string{"blue screen"}, d.Synonyms()["crash"])
}

func TestDictionaryFile_MissingFileFallsBackToBuiltins(t *testing.T) {
	d, err := NewDictionaryFile(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, "unique health id", d.Abbreviations()["uhid"])
}

func TestDictionaryFile_MalformedYAMLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.yaml")
	require.NoError(t, os.WriteFile(path, []byte("abbreviations: ["), 0o644))

	_, err := NewDictionaryFile(path, nil)
	require.Error(t, err)
}

func TestDictionaryFile_HotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dict.yaml")
	require.NoError(t, os.WriteFile(path, []byte("abbreviations:\n  dx: diagnosis\n"), 0o644))

	d, err := NewDictionaryFile(path, nil)
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, d.Watch())

	require.NoError(t, os.WriteFile(path, []byte("abbreviations:\n  dx: differential diagnosis\n"), 0o644))

	// Reload is debounced; poll past the debounce window.
	assert.Eventually(t, func() bool {
		return d.Abbreviations()["dx"] == "differential diagnosis"
	}, 3*time.Second, 100*time.Millisecond)
}
