package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const siteJSON = `{
  "website": {
    "title": "Gaon Nurri",
    "description": "",
    "pages": {
      "https://gaonnurri.com/menu": {
        "title": "Menu",
        "content": ["Menu", "Our drinks menu features soju cocktails and teas."],
        "images": [{"url": "https://gaonnurri.com/bar.jpg", "caption": "The bar at night"}, {"url": "x.jpg", "caption": ""}],
        "documents": ["https://gaonnurri.com/menu.pdf"]
      },
      "https://gaonnurri.com/": {
        "title": "Home",
        "content": ["Korean dining on the 30th floor of the Four Seasons."],
        "images": [],
        "documents": []
      }
    },
    "social": {"instagram": ["https://instagram.com/gaonnurri"], "facebook": [], "tiktok": [""]},
    "links": ["https://gaonnurri.com/menu"]
  }
}`

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSiteToDocuments(t *testing.T) {
	site, err := ParseSite([]byte(siteJSON))
	require.NoError(t, err)
	docs := site.ToDocuments("site")

	type row struct{ text, source, tag string }
	var got []row
	for _, d := range docs {
		require.Len(t, d.Metadata.Tags, 1)
		got = append(got, row{d.Text, d.Metadata.Source, d.Metadata.Tags[0]})
	}
	require.Equal(t, []row{
		{"Link for instagram: https://instagram.com/gaonnurri", "https://instagram.com/gaonnurri", TagLinks},
		{"Korean dining on the 30th floor of the Four Seasons.", "https://gaonnurri.com/", TagContent},
		{"Our drinks menu features soju cocktails and teas.", "https://gaonnurri.com/menu", TagContent},
		{"The bar at night", "https://gaonnurri.com/menu", TagImage},
		{"https://gaonnurri.com/menu.pdf", "https://gaonnurri.com/menu", TagDocument},
	}, got)
	require.Equal(t, "site:0", docs[0].ID)
	require.Equal(t, "site:4", docs[4].ID)
}

func TestParseSiteUnwrapped(t *testing.T) {
	site, err := ParseSite([]byte(`{"title":"T","description":"A small tea shop in Portland.","pages":{}}`))
	require.NoError(t, err)
	docs := site.ToDocuments("x")
	require.Len(t, docs, 1)
	require.Equal(t, "T", docs[0].Metadata.Source)

	_, err = ParseSite([]byte("not json"))
	require.Error(t, err)
}

func TestLoadDirectoryAndPatterns(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.txt", "plain text file")
	write(t, dir, "notes/b.md", "# Notes\n\nmarkdown body")
	write(t, dir, "notes/deep/c.html", "<html><head><title>Page C</title></head><body><p>html body</p></body></html>")
	write(t, dir, "site.json", siteJSON)
	write(t, dir, "image.png", "binary")

	docs, err := Load(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, docs, 8)

	bySource := map[string]string{}
	for _, d := range docs {
		bySource[d.Metadata.Source] = d.Text
	}
	require.Equal(t, "plain text file", bySource[filepath.Join(dir, "a.txt")])
	require.Equal(t, "html body", bySource["Page C"])

	docs, err = Load(context.Background(), []string{filepath.Join(dir, "**", "*.md"), filepath.Join(dir, "notes", "b.md")})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "# Notes\n\nmarkdown body", docs[0].Text)

	_, err = Load(context.Background(), []string{filepath.Join(dir, "missing.txt")})
	require.Error(t, err)
}

func TestLoadFileIDsAreStable(t *testing.T) {
	path := write(t, t.TempDir(), "a.txt", "hello")
	first, err := LoadFile(path)
	require.NoError(t, err)
	second, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, first[0].ID, second[0].ID)
	require.Len(t, first[0].ID, 16)
}

func TestSnippetsAndTitle(t *testing.T) {
	docs := Snippets("The Eiffel Tower is located in Paris, France.", "  ", "short one")
	require.Len(t, docs, 2)
	require.Equal(t, "The Eiffel Tower is located...", docs[0].Metadata.Source)
	require.Equal(t, "short one", docs[1].Metadata.Source)
	require.Equal(t, "", Title(""))
}
