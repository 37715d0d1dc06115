package edgar

import (
	"strings"

	"golang.org/x/net/html"
)

// findElement returns the first element matching a simple selector.
func findElement(n *html.Node, selector string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && matchesSelector(node, selector) {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

// findAll returns every element matching a simple selector, in document
// order.
func findAll(n *html.Node, selector string) []*html.Node {
	var result []*html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if node.Type == html.ElementNode && matchesSelector(node, selector) {
			result = append(result, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

// matchesSelector supports tag, #id, .class, tag.class and [attr=value]
// selectors.
func matchesSelector(n *html.Node, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "[") && strings.HasSuffix(selector, "]"):
		key, val, ok := strings.Cut(strings.TrimSuffix(strings.TrimPrefix(selector, "["), "]"), "=")
		return ok && attr(n, key) == val
	case strings.HasPrefix(selector, "#"):
		return attr(n, "id") == selector[1:]
	case strings.Contains(selector, "."):
		tag, class, _ := strings.Cut(selector, ".")
		return (tag == "" || n.Data == tag) && hasClass(n, class)
	default:
		return n.Data == selector
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

// textContent returns the node's text with whitespace collapsed.
func textContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteByte(' ')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// childElements returns the direct element children with the given tag.
func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

// tableRows returns the data rows of a table, skipping header rows.
// The HTML parser inserts tbody, so rows are collected at any depth.
func tableRows(table *html.Node) [][]*html.Node {
	var rows [][]*html.Node
	for _, tr := range findAll(table, "tr") {
		cells := childElements(tr, "td")
		if len(cells) == 0 {
			continue
		}
		rows = append(rows, cells)
	}
	return rows
}

// removeElements removes all elements with the given tag names.
func removeElements(n *html.Node, tags []string) {
	tagSet := make(map[string]bool)
	for _, tag := range tags {
		tagSet[tag] = true
	}

	var toRemove []*html.Node
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.ElementNode && tagSet[node.Data] {
			toRemove = append(toRemove, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	for _, node := range toRemove {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// renderNode renders a node and its children back to HTML.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	_ = html.Render(&sb, n)
	return sb.String()
}
