package mime

import (
	"fmt"
	"io"
	"mime"

	msgcharset "github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeHeaderWord decodes an RFC 2047 encoded-word header value (subject,
// display name, ...), for use outside this package by callers that only
// have the raw header text (e.g. the sync engine's envelope/header
// fallback path).
func DecodeHeaderWord(s string) string {
	return decodeMIMEWord(s)
}

// decodeMIMEWord decodes RFC 2047 encoded-words (=?charset?Q?...?= and
// =?charset?B?...?=). Adjacent encoded words separated only by whitespace
// collapse to no separator, matching mime.WordDecoder's own behavior.
// Invalid input is returned unchanged (R2).
func decodeMIMEWord(s string) string {
	if s == "" {
		return s
	}
	dec := &mime.WordDecoder{CharsetReader: wordCharsetReader}
	decoded, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

func wordCharsetReader(charsetName string, r io.Reader) (io.Reader, error) {
	if reader, err := msgcharset.Reader(charsetName, r); err == nil {
		return reader, nil
	}
	enc, err := htmlindex.Get(charsetName)
	if err != nil {
		return nil, fmt.Errorf("unknown charset: %s", charsetName)
	}
	return enc.NewDecoder().Reader(r), nil
}
