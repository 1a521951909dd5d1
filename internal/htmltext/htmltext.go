package htmltext

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var noise = "script, style, noscript, iframe, svg, nav, footer"

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Find(noise).Remove()
	return doc, nil
}

// Text returns the visible body text with whitespace collapsed.
func Text(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}

// Title returns the document title, or "" when there is none.
func Title(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// Markdown converts the html body to markdown with blank lines removed.
func Markdown(html string) (string, error) {
	doc, err := parse(html)
	if err != nil {
		return "", err
	}
	cleaned, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", err
	}
	lines := strings.Split(markdown, "\n")
	result := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return strings.Join(result, "\n"), nil
}
