package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runLibraryCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewLibraryCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func newLibraryOpts(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{Format: format, Database: filepath.Join(t.TempDir(), "lib.db")}
}

func TestLibrarySaveAndList(t *testing.T) {
	opts := newLibraryOpts(t, "text")

	out, err := runLibraryCmd(t, opts, "save", "testdata/definitions")
	require.NoError(t, err)
	assert.Contains(t, out, "saved     allowance")
	assert.Contains(t, out, "saved     rent")
	assert.Contains(t, out, "saved     savings")

	out, err = runLibraryCmd(t, opts, "save", "testdata/definitions/savings.cue")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged savings")

	out, err = runLibraryCmd(t, opts, "list")
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 3)
	assert.True(t, bytes.HasPrefix(lines[0], []byte("allowance")))
	assert.True(t, bytes.HasPrefix(lines[2], []byte("savings")))
}

func TestLibraryListEmpty(t *testing.T) {
	out, err := runLibraryCmd(t, newLibraryOpts(t, "text"), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Library is empty.")

	out, err = runLibraryCmd(t, newLibraryOpts(t, "json"), "list")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []LibraryEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Data)
}

func TestLibrarySaveSelectedJSON(t *testing.T) {
	opts := newLibraryOpts(t, "json")

	out, err := runLibraryCmd(t, opts, "save", "testdata/definitions/household.yaml", "rent")
	require.NoError(t, err)

	var resp struct {
		Data []SaveOutcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "rent", resp.Data[0].Name)
	assert.True(t, resp.Data[0].Changed)
	assert.Len(t, resp.Data[0].ContentHash, 64)
}

func TestLibrarySaveRejectsInvalid(t *testing.T) {
	opts := newLibraryOpts(t, "text")

	_, err := runLibraryCmd(t, opts, "save", "testdata/invalid/bad_unit.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err := runLibraryCmd(t, opts, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Library is empty.")
}

func TestLibraryShow(t *testing.T) {
	opts := newLibraryOpts(t, "text")
	_, err := runLibraryCmd(t, opts, "save", "testdata/definitions/household.yaml", "rent")
	require.NoError(t, err)

	out, err := runLibraryCmd(t, opts, "show", "rent")
	require.NoError(t, err)

	var doc struct {
		Series map[string]struct {
			Label      string  `yaml:"label"`
			StartValue float64 `yaml:"start_value"`
			Window     struct {
				Start string `yaml:"start"`
				End   string `yaml:"end"`
			} `yaml:"window"`
		} `yaml:"series"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	rent, ok := doc.Series["rent"]
	require.True(t, ok, out)
	assert.Equal(t, "Rent", rent.Label)
	assert.Equal(t, float64(5000), rent.StartValue)
	// The file window is stored with a series that has none of its own.
	assert.Equal(t, "2024-01-01", rent.Window.Start)
	assert.Equal(t, "2024-04-01", rent.Window.End)
}

func TestLibraryShowNotFound(t *testing.T) {
	out, err := runLibraryCmd(t, newLibraryOpts(t, "text"), "show", "nothing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `series "nothing" is not in the library`)
}

func TestLibraryHistoryAndDelete(t *testing.T) {
	opts := newLibraryOpts(t, "json")
	dir := t.TempDir()

	v1 := filepath.Join(dir, "v1.yaml")
	writeFile(t, v1, `
series:
  fund:
    start_value: 100
    components:
      - { kind: deposit, amount: 10, every: 1, unit: days }
`)
	v2 := filepath.Join(dir, "v2.yaml")
	writeFile(t, v2, `
series:
  fund:
    start_value: 200
    components:
      - { kind: deposit, amount: 10, every: 1, unit: days }
`)

	_, err := runLibraryCmd(t, opts, "save", v1)
	require.NoError(t, err)
	_, err = runLibraryCmd(t, opts, "save", v2)
	require.NoError(t, err)

	out, err := runLibraryCmd(t, opts, "history", "fund")
	require.NoError(t, err)
	var resp struct {
		Data []RevisionEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Less(t, resp.Data[0].Seq, resp.Data[1].Seq)
	assert.NotEqual(t, resp.Data[0].ContentHash, resp.Data[1].ContentHash)

	_, err = runLibraryCmd(t, opts, "delete", "fund")
	require.NoError(t, err)

	_, err = runLibraryCmd(t, opts, "delete", "fund")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runLibraryCmd(t, opts, "history", "fund")
	require.Error(t, err)
}

func TestLibraryNoDatabase(t *testing.T) {
	_, err := runLibraryCmd(t, &RootOptions{Format: "text"}, "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeLibrary)
}

func TestShortHash(t *testing.T) {
	assert.Equal(t, "abc", shortHash("abc"))
	assert.Equal(t, "0123456789ab", shortHash("0123456789abcdef"))
}
