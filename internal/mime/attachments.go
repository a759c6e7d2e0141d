package mime

import (
	"encoding/json"
	"strings"
)

// Attachment is one entry of the attachments_json inventory stored on a
// BodyRecord.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	ContentID   string `json:"contentId,omitempty"`
	Disposition string `json:"disposition,omitempty"`
}

// isAttachment implements the classification rule : a part is an
// attachment iff its disposition is "attachment", it carries a filename, it
// has a Content-ID on a non-text mimetype, or it is neither text/* nor
// multipart/*. multipart/* containers are never attachments themselves.
func isAttachment(n *node) bool {
	if n.isMultipart() {
		return false
	}
	if n.disposition == "attachment" {
		return true
	}
	if n.filename != "" {
		return true
	}
	if n.contentID != "" && !strings.HasPrefix(n.mimeType, "text/") {
		return true
	}
	if !strings.HasPrefix(n.mimeType, "text/") {
		return true
	}
	return false
}

// collectAttachments walks the MIME tree depth-first enumerating attachment
// parts, stopping at the same maxSummaryDepth/maxSummaryLines caps as
// walkSummary (B2) so a pathologically deep or wide tree is excluded from
// the attachment list exactly where it is excluded from the summary.
func collectAttachments(root *node) []Attachment {
	var out []Attachment
	lines := 0
	walkAttachments(root, 0, &lines, &out)
	return out
}

func walkAttachments(n *node, depth int, lines *int, out *[]Attachment) {
	if n == nil || depth > maxSummaryDepth || *lines >= maxSummaryLines {
		return
	}

	if isAttachment(n) {
		*out = append(*out, Attachment{
			Filename:    n.filename,
			ContentType: n.mimeType,
			Size:        n.size,
			ContentID:   n.contentID,
			Disposition: n.disposition,
		})
	}
	*lines++

	for _, c := range n.children {
		if *lines >= maxSummaryLines {
			return
		}
		walkAttachments(c, depth+1, lines, out)
	}
}

func marshalAttachments(atts []Attachment) (string, error) {
	if len(atts) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(atts)
	if err != nil {
		return "[]", err
	}
	return string(b), nil
}
