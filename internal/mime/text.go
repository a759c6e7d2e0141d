package mime

import (
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.UGCPolicy()

// selectText implements the deterministic text-selection algorithm:
//  1. a leaf renders itself (text/plain decoded, text/html sanitized+rendered);
//  2. multipart/alternative prefers plain over html over its first child;
//  3. any other container returns the first child with non-empty text;
//  4. failing all of that, the whole raw message is decoded UTF-8-lossy.
func selectText(n *node, raw []byte) string {
	if text := selectTextFrom(n); text != "" {
		return text
	}
	return strings.ToValidUTF8(string(raw), "�")
}

func selectTextFrom(n *node) string {
	if n == nil {
		return ""
	}

	if !n.isMultipart() {
		return renderLeaf(n)
	}

	if n.mimeType == "multipart/alternative" {
		var htmlChild *node
		for _, c := range n.children {
			if c.mimeType == "text/plain" {
				if text := renderLeaf(c); text != "" {
					return text
				}
			}
			if c.mimeType == "text/html" && htmlChild == nil {
				htmlChild = c
			}
		}
		if htmlChild != nil {
			if text := renderLeaf(htmlChild); text != "" {
				return text
			}
		}
		// Fall through to depth-first search over whatever remains.
	}

	for _, c := range n.children {
		if text := selectTextFrom(c); text != "" {
			return text
		}
	}
	return ""
}

func renderLeaf(n *node) string {
	switch n.mimeType {
	case "text/plain":
		return decodeCharset(n.body, n.charset)
	case "text/html":
		return renderHTML(n.body, n.charset)
	default:
		return ""
	}
}

func renderHTML(body []byte, declaredCharset string) string {
	charsetName := declaredCharset
	if charsetName == "" {
		charsetName = extractCharsetFromHTML(body)
	}
	decoded := decodeCharset(body, charsetName)

	cleaned := cleanHTMLURLs(decoded)
	sanitized := htmlPolicy.Sanitize(cleaned)

	text, err := html2text.FromString(sanitized, html2text.Options{PrettyTables: false})
	if err != nil {
		return strings.TrimSpace(sanitized)
	}
	return text
}
