package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"z.txt", "a.md", "data.csv", "page.html", "notes.htm", "image.png", "archive.zip"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o700))

	sources, err := listSources(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "data.csv", "notes.htm", "page.html", "z.txt"}, sources)
}

func TestListSources_MissingDir(t *testing.T) {
	_, err := listSources(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadText_Plain(t *testing.T) {
	text, err := loadText(context.Background(), []byte("hello world"), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestLoadText_Markdown(t *testing.T) {
	text, err := loadText(context.Background(), []byte("# Title\n\nBody text."), ".md")
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Body text.")
}

func TestLoadText_CSV(t *testing.T) {
	raw := "name,role\nalice,teacher\nbob,student\n"
	text, err := loadText(context.Background(), []byte(raw), ".csv")
	require.NoError(t, err)
	assert.Contains(t, text, "name: alice")
	assert.Contains(t, text, "role: teacher")
	assert.Contains(t, text, "name: bob")
}

func TestLoadText_HTMLStripsMarkup(t *testing.T) {
	raw := `<html><head><style>body{color:red}</style></head>
<body><script>alert("hi")</script><h1>Heading</h1><p>First para.</p></body></html>`

	text, err := loadText(context.Background(), []byte(raw), ".html")
	require.NoError(t, err)
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "First para.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestLoadText_UnsupportedExtension(t *testing.T) {
	_, err := loadText(context.Background(), []byte("x"), ".pdf")
	assert.Error(t, err)
}

func TestNormalizeSpace(t *testing.T) {
	in := "  first line  \n\n\n   \n  second line\n"
	assert.Equal(t, "first line\nsecond line", normalizeSpace(in))
}
