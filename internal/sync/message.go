package sync

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/emersion/go-imap/v2"
	ottimap "github.com/hkdb/aerion/internal/imap"
	"github.com/hkdb/aerion/internal/mime"
	"github.com/hkdb/aerion/internal/store"
)

// messageID computes the stable id for a fetched message: the Gmail
// message id when present, falling back to an account/folder/uid triple
// that is not stable across moves (Invariant M1 relies on raw_hash to
// reconcile the two once a stable id becomes available).
func messageID(accountID, folder string, f ottimap.Fetch) string {
	if f.GMMsgID != 0 {
		return fmt.Sprintf("%d", f.GMMsgID)
	}
	return fmt.Sprintf("%s:%s:%d", accountID, folder, f.UID)
}

// formatAddress renders an envelope address as "mailbox@host" or
// "Name <mailbox@host>" when a display name is present.
func formatAddress(a imap.Address) string {
	addr := fmt.Sprintf("%s@%s", a.Mailbox, a.Host)
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", mime.DecodeHeaderWord(a.Name), addr)
	}
	return addr
}

func formatAddressList(addrs []imap.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = formatAddress(a)
	}
	return strings.Join(parts, ", ")
}

// headerFallback reads the Subject/From headers directly out of the raw
// RFC822 bytes, for use when the envelope omits them (§4.5.3 step 3).
func headerFallback(raw []byte) (subject, from string) {
	if len(raw) == 0 {
		return "", ""
	}
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return "", ""
	}
	subject = mime.DecodeHeaderWord(msg.Header.Get("Subject"))
	from = msg.Header.Get("From")
	if addr, err := mail.ParseAddress(mime.DecodeHeaderWord(from)); err == nil {
		from = addr.Address
	}
	return subject, from
}

// buildMessageRecord assembles a MessageRecord from a fully-populated
// fetch (envelope + body). subject/from fall back to raw headers parsed
// out of the message itself when the envelope omits them.
func buildMessageRecord(accountID, folder string, f ottimap.Fetch, sanitized mime.SanitizedBody, now int64) store.MessageRecord {
	id := messageID(accountID, folder, f)

	var subject, fromName, fromEmail, toList, ccList, bccList, replyTo, threadID string
	if f.Envelope != nil {
		subject = mime.DecodeHeaderWord(f.Envelope.Subject)
		if len(f.Envelope.From) > 0 {
			from := f.Envelope.From[0]
			fromName = mime.DecodeHeaderWord(from.Name)
			fromEmail = fmt.Sprintf("%s@%s", from.Mailbox, from.Host)
		}
		toList = formatAddressList(f.Envelope.To)
		ccList = formatAddressList(f.Envelope.Cc)
		bccList = formatAddressList(f.Envelope.Bcc)
		if len(f.Envelope.ReplyTo) > 0 {
			replyTo = formatAddress(f.Envelope.ReplyTo[0])
		}
	}
	if f.GMThrID != 0 {
		threadID = fmt.Sprintf("%d", f.GMThrID)
	}

	if subject == "" || fromEmail == "" {
		headerSubject, headerFrom := headerFallback(f.Body)
		if subject == "" {
			subject = headerSubject
		}
		if fromEmail == "" {
			fromEmail = headerFrom
		}
	}

	return store.MessageRecord{
		ID:             id,
		AccountID:      accountID,
		Folder:         folder,
		UID:            f.UID,
		ThreadID:       threadID,
		InternalDate:   f.InternalDate.Unix(),
		Subject:        subject,
		FromName:       fromName,
		FromEmail:      fromEmail,
		ToList:         toList,
		CcList:         ccList,
		BccList:        bccList,
		ReplyTo:        replyTo,
		Flags:          f.Flags,
		Labels:         f.GMLabels,
		HasAttachments: sanitized.HasAttachments,
		SizeBytes:      f.Size,
		RawHash:        sanitized.RawHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func buildBodyRecord(id string, f ottimap.Fetch, sanitized mime.SanitizedBody, now int64) store.BodyRecord {
	return store.BodyRecord{
		MessageID:       id,
		RawBody:         f.Body,
		SanitizedText:   sanitized.SanitizedText,
		MIMESummary:     sanitized.MIMESummary,
		AttachmentsJSON: sanitized.AttachmentsJSON,
		SanitizedAt:     now,
	}
}
