package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zakerytclarke/teapot/internal/domain"
)

// Document tags produced from scraped sites.
const (
	TagContent  = "content"
	TagImage    = "image"
	TagDocument = "document"
	TagLinks    = "links"
)

// minContentLen drops menu labels and other short fragments.
const minContentLen = 10

// Site is the scraper's JSON output for one website.
type Site struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Pages       map[string]Page     `json:"pages"`
	Social      map[string][]string `json:"social"`
	Documents   []string            `json:"documents"`
	Links       []string            `json:"links"`
}

type Page struct {
	Title     string   `json:"title"`
	Content   []string `json:"content"`
	Images    []Image  `json:"images"`
	Documents []string `json:"documents"`
}

type Image struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// ParseSite decodes scraper output. The site may be wrapped in a "website"
// key as it is in saved bot configs.
func ParseSite(data []byte) (*Site, error) {
	var wrapped struct {
		Website *Site `json:"website"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode site: %w", err)
	}
	if wrapped.Website != nil {
		return wrapped.Website, nil
	}
	site := &Site{}
	if err := json.Unmarshal(data, site); err != nil {
		return nil, fmt.Errorf("decode site: %w", err)
	}
	return site, nil
}

// ToDocuments flattens the site into tagged documents: one per social link,
// one per content block longer than a few characters, one per captioned
// image and one per linked document. Pages and networks are visited in
// sorted order so the same site always yields the same pool.
func (s *Site) ToDocuments(idPrefix string) []domain.Document {
	var out []domain.Document
	add := func(text, source, tag string) {
		out = append(out, domain.Document{
			ID:       fmt.Sprintf("%s:%d", idPrefix, len(out)),
			Text:     text,
			Metadata: domain.Metadata{Source: source, Tags: []string{tag}},
		})
	}
	if s.Description != "" {
		add(s.Description, s.Title, TagContent)
	}
	for _, network := range sortedKeys(s.Social) {
		urls := s.Social[network]
		if len(urls) == 0 || urls[0] == "" {
			continue
		}
		add(fmt.Sprintf("Link for %s: %s", network, urls[0]), urls[0], TagLinks)
	}
	for _, url := range sortedKeys(s.Pages) {
		page := s.Pages[url]
		for _, content := range page.Content {
			if content = strings.TrimSpace(content); len(content) > minContentLen {
				add(content, url, TagContent)
			}
		}
		for _, img := range page.Images {
			if caption := strings.TrimSpace(img.Caption); caption != "" {
				add(caption, url, TagImage)
			}
		}
		for _, doc := range page.Documents {
			if doc = strings.TrimSpace(doc); doc != "" {
				add(doc, url, TagDocument)
			}
		}
	}
	for _, doc := range s.Documents {
		if doc = strings.TrimSpace(doc); doc != "" {
			add(doc, s.Title, TagDocument)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
