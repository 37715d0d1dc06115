package edgar

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// contentSelectors locate the filing body on EDGAR pages, in priority order.
var contentSelectors = []string{"#formDiv", "#contentDiv", "main", "body"}

// Converter renders EDGAR pages as markdown text.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a converter with GitHub-flavored tables, which keeps
// the document tables of index pages readable.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Converter{converter: converter}
}

// Convert renders the main content of a parsed page. The document is
// modified in place.
func (c *Converter) Convert(doc *html.Node) (string, error) {
	removeElements(doc, []string{
		"script", "style", "noscript", "iframe", "object", "embed", "form", "input", "button", "nav",
	})

	content := ""
	for _, selector := range contentSelectors {
		if node := findElement(doc, selector); node != nil {
			content = renderNode(node)
			break
		}
	}
	if content == "" {
		content = renderNode(doc)
	}

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(markdown), nil
}

// cleanMarkdown collapses blank runs and trims trailing whitespace.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
