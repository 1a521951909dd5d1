package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/zakerytclarke/teapot/internal/domain"
	"github.com/zakerytclarke/teapot/internal/htmltext"
)

// Extensions lists the file types Load understands.
var Extensions = []string{".txt", ".md", ".markdown", ".html", ".htm", ".json"}

const titleWords = 5

// Load expands paths (files, directories or doublestar patterns) and reads
// every supported file into documents. Unsupported files matched by a
// pattern are skipped; a pattern that matches nothing is an error.
func Load(ctx context.Context, paths []string) ([]domain.Document, error) {
	files, err := Expand(paths)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx)
	var docs []domain.Document
	for _, f := range files {
		loaded, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		logger.Debug("file loaded", zap.String("path", f), zap.Int("documents", len(loaded)))
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// Expand resolves paths into a de-duplicated list of supported files.
func Expand(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, p := range paths {
		pattern := p
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			pattern = filepath.Join(p, "**", "*")
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", p)
		}
		for _, m := range matches {
			if !Supported(m) {
				continue
			}
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// LoadFile reads a single file. Text and markdown are kept as is, HTML is
// reduced to markdown and JSON is read as scraper output.
func LoadFile(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	id := hashString(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		site, err := ParseSite(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return site.ToDocuments(id), nil
	case ".html", ".htm":
		text, err := htmltext.Markdown(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		source := htmltext.Title(string(data))
		if source == "" {
			source = path
		}
		return single(id, text, source), nil
	default:
		return single(id, string(data), path), nil
	}
}

func single(id, text, source string) []domain.Document {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []domain.Document{{ID: id, Text: text, Metadata: domain.Metadata{Source: source}}}
}

// Snippets turns loose strings (supplied on the command line or over HTTP)
// into documents titled by their first words.
func Snippets(texts ...string) []domain.Document {
	out := make([]domain.Document, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, domain.Document{
			ID:       hashString(t),
			Text:     t,
			Metadata: domain.Metadata{Source: Title(t)},
		})
	}
	return out
}

// Title names a snippet after its first five words.
func Title(text string) string {
	words := strings.Fields(text)
	if len(words) <= titleWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleWords], " ") + "..."
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
