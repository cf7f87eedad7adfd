package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestList_LoadSkipsCommentsAndBlanks(t *testing.T) {
	t.Parallel()

	path := writeSourcesFile(t, `https://api.chucknorris.io/jokes/random

# [HTTP 404] https://dead.example.com/jokes
https://parade.com/968666/parade/chuck-norris-jokes/
`)

	got, err := NewList(path, nil).Load()
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://api.chucknorris.io/jokes/random",
		"https://parade.com/968666/parade/chuck-norris-jokes/",
	}, got)
}

func TestList_LoadMissingFileYieldsEmptyList(t *testing.T) {
	t.Parallel()

	got, err := NewList(filepath.Join(t.TempDir(), "nope.txt"), nil).Load()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestList_DisableCommentsOutSource(t *testing.T) {
	t.Parallel()

	path := writeSourcesFile(t, `https://api.chucknorris.io/jokes/random
https://dead.example.com/jokes
`)
	list := NewList(path, nil)

	require.NoError(t, list.Disable("https://dead.example.com/jokes", "HTTP 404"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# [HTTP 404] https://dead.example.com/jokes")

	// The disabled source no longer loads; the healthy one still does.
	got, err := list.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"https://api.chucknorris.io/jokes/random"}, got)
}

func TestList_DisableUnknownURLIsNoOp(t *testing.T) {
	t.Parallel()

	content := "https://api.chucknorris.io/jokes/random\n"
	path := writeSourcesFile(t, content)

	require.NoError(t, NewList(path, nil).Disable("https://other.example.com", "HTTP 404"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	got := Validate([]string{
		"https://api.chucknorris.io/jokes/random",
		"not a url",
		"ftp://files.example.com/quotes.txt",
		"/relative/path",
		"http://",
	}, nil)

	require.Equal(t, []string{
		"https://api.chucknorris.io/jokes/random",
		"ftp://files.example.com/quotes.txt",
	}, got)
}
