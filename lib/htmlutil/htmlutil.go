package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates every text node under `node` as is.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// collectTextRuns appends every non-blank text node under `node`, trimmed.
func collectTextRuns(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		text := CollapseWhitespace(node.Data)
		if text != "" {
			*out = append(*out, text)
		}
		return
	}
	child := node.FirstChild
	for child != nil {
		collectTextRuns(child, out)
		child = child.NextSibling
	}
}

// CollapseWhitespace trims `s` and replaces every run of (unicode) whitespace with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PlainText turns an html fragment into plain text, tags are dropped, entities
// are decoded and separate text runs are joined by a single space.
// Empty input gives an empty string.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		// the html5 parser only fails on reader errors, which a string reader never returns
		return CollapseWhitespace(fragment)
	}
	doc.Find("script, style").Remove()

	var runs []string
	for _, node := range doc.Nodes {
		collectTextRuns(node, &runs)
	}
	return strings.Join(runs, " ")
}
