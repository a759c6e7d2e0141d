// Package mime parses RFC822 byte streams into an indexable text rendering,
// a MIME structure summary, and an attachment inventory.
package mime

import (
	"bytes"
	"io"
	"mime"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/hkdb/aerion/internal/logging"
	"github.com/rs/zerolog"
)

// maxPartSize bounds how much of a single MIME part is read into memory.
const maxPartSize = 10 * 1024 * 1024

// SanitizedBody is the output of Sanitize: a text rendering suitable for
// indexing/display, a human-readable structure summary, a JSON-encoded
// attachment inventory, and the content hash used for local deduplication.
type SanitizedBody struct {
	SanitizedText   string
	MIMESummary     string
	AttachmentsJSON string
	RawHash         string
	HasAttachments  bool
}

var log = logging.WithComponent("sanitizer")

// Sanitize runs the full pipeline over a raw RFC822 message: parse, select
// text, summarize the MIME tree, enumerate attachments, hash the bytes.
// It never returns an error; parse failures degrade to a best-effort
// UTF-8-lossy rendering of the raw bytes per the component's failure policy.
func Sanitize(raw []byte) SanitizedBody {
	hash := RawHash(raw)

	entity, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil {
		log.Debug().Err(err).Int("rawLen", len(raw)).Msg("failed to parse message, falling back to raw text")
		return SanitizedBody{
			SanitizedText: strings.ToValidUTF8(string(raw), "�"),
			RawHash:       hash,
		}
	}

	root := buildNode(entity)

	text := selectText(root, raw)
	summary := summarize(root)
	attachments := collectAttachments(root)
	attachmentsJSON, err := marshalAttachments(attachments)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal attachment list")
	}

	return SanitizedBody{
		SanitizedText:   text,
		MIMESummary:     summary,
		AttachmentsJSON: attachmentsJSON,
		RawHash:         hash,
		HasAttachments:  len(attachments) > 0,
	}
}

// node is one entry of the parsed MIME tree: a leaf (part) or a multipart
// container holding children. It is built once from the emersion/go-message
// entity tree so the text-selection, summary, and attachment passes all
// walk the same structure instead of re-parsing.
type node struct {
	mimeType    string
	charset     string
	disposition string
	filename    string
	contentID   string
	body        []byte
	size        int
	children    []*node
}

func (n *node) isMultipart() bool {
	return strings.HasPrefix(n.mimeType, "multipart/")
}

func buildNode(entity *gomessage.Entity) *node {
	contentType, ctParams, _ := mime.ParseMediaType(entity.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = "text/plain"
	}
	disposition, dispParams, _ := mime.ParseMediaType(entity.Header.Get("Content-Disposition"))
	contentID := strings.Trim(entity.Header.Get("Content-ID"), "<>")

	n := &node{
		mimeType:    strings.ToLower(contentType),
		charset:     ctParams["charset"],
		disposition: strings.ToLower(disposition),
		contentID:   contentID,
	}
	n.filename = filenameFor(dispParams, ctParams, entity.Header.Get("Content-Type"))

	if mr := entity.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err != nil {
				break
			}
			n.children = append(n.children, buildNode(part))
		}
		return n
	}

	lr := io.LimitReader(entity.Body, maxPartSize)
	body, err := io.ReadAll(lr)
	if err != nil && len(body) == 0 {
		log.Debug().Err(err).Str("mimeType", n.mimeType).Msg("failed to read part body")
	}
	n.body = body
	n.size = len(body)
	return n
}

func filenameFor(dispParams, ctParams map[string]string, rawContentType string) string {
	name := dispParams["filename"]
	if name == "" {
		name = ctParams["name"]
	}
	return decodeMIMEWord(name)
}
