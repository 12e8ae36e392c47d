package ui

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end a line when converting HTML to text
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "table": true, "ul": true, "ol": true,
}

// PlainText converts message content that arrives as HTML into plain text.
// Content that does not look like HTML is returned unchanged.
func PlainText(content string) string {
	if !looksLikeHTML(content) {
		return content
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}

	var sb strings.Builder
	extractText(doc, &sb)
	return cleanText(sb.String())
}

func looksLikeHTML(s string) bool {
	i := strings.Index(s, "<")
	if i < 0 || !strings.Contains(s[i:], ">") {
		return false
	}
	lower := strings.ToLower(s)
	for tag := range blockTags {
		if strings.Contains(lower, "<"+tag+">") || strings.Contains(lower, "<"+tag+" ") || strings.Contains(lower, "<"+tag+"/>") {
			return true
		}
	}
	for _, tag := range []string{"<html", "<body", "<span", "<a ", "<b>", "<i>", "<strong>", "<em>", "<code>"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

// extractText walks the tree, skipping elements that never carry readable text
func extractText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "head", "noscript":
			return
		}
		if n.Data == "li" {
			sb.WriteString("\n- ")
		}
	}

	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}

	if n.Type == html.ElementNode && blockTags[n.Data] {
		sb.WriteString("\n")
	}
}

// cleanText collapses runs of whitespace inside lines and drops blank lines
func cleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || line == "-" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// truncateWords truncates text to approximately N words
func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}

	return strings.Join(words[:maxWords], " ") + "..."
}
