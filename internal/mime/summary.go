package mime

import (
	"fmt"
	"strings"
)

// maxSummaryLines and maxSummaryDepth bound the MIME summary walk:
// parts beyond either cap are silently dropped rather than erroring.
const (
	maxSummaryLines = 300
	maxSummaryDepth = 20
)

// summarize renders a depth-first, indented one-line-per-part description
// of the MIME tree.
func summarize(root *node) string {
	var b strings.Builder
	lines := 0
	walkSummary(root, 0, &b, &lines)
	return strings.TrimRight(b.String(), "\n")
}

func walkSummary(n *node, depth int, b *strings.Builder, lines *int) {
	if n == nil || depth > maxSummaryDepth || *lines >= maxSummaryLines {
		return
	}

	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(summaryLine(n))
	b.WriteByte('\n')
	*lines++

	for _, c := range n.children {
		if *lines >= maxSummaryLines {
			return
		}
		walkSummary(c, depth+1, b, lines)
	}
}

func summaryLine(n *node) string {
	var b strings.Builder
	b.WriteString(n.mimeType)
	if n.charset != "" {
		fmt.Fprintf(&b, "; charset=%s", n.charset)
	}
	if n.disposition != "" {
		fmt.Fprintf(&b, "; disp=%s", n.disposition)
	}
	if n.filename != "" {
		fmt.Fprintf(&b, "; filename=%s", n.filename)
	}
	if n.contentID != "" {
		fmt.Fprintf(&b, "; cid=%s", n.contentID)
	}
	if !n.isMultipart() {
		fmt.Fprintf(&b, "; bytes=%d", n.size)
	}
	return b.String()
}
