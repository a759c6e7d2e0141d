package mime

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeCharset converts content from the declared charset to UTF-8. When
// the declared charset is absent, UTF-8 or US-ASCII and the content is not
// valid UTF-8 or looks misencoded, it falls back to auto-detection. A
// declared charset that cannot be resolved or decoded leaves the content
// unchanged; its decoded output is not checked for misencoding.
func decodeCharset(content []byte, declaredCharset string) string {
	if declaredCharset == "" || strings.EqualFold(declaredCharset, "utf-8") || strings.EqualFold(declaredCharset, "us-ascii") {
		if utf8.Valid(content) && !looksLikeGibberish(string(content)) {
			return string(content)
		}

		enc, _, _ := charset.DetermineEncoding(content, "text/html")
		if decoded, err := enc.NewDecoder().Bytes(content); err == nil && !looksLikeGibberish(string(decoded)) {
			return string(decoded)
		}
		return string(content)
	}

	enc, err := htmlindex.Get(declaredCharset)
	if err != nil {
		if alias, ok := charsetAliases[strings.ToLower(declaredCharset)]; ok {
			enc, err = htmlindex.Get(alias)
		}
		if err != nil {
			return string(content)
		}
	}

	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(decoded)
}

var charsetAliases = map[string]string{
	"gb2312": "gbk",
	"x-gbk":  "gbk",
	"x-big5": "big5",
}

// looksLikeGibberish flags text with an unusually high share of the Unicode
// replacement character or rare CJK Extension B codepoints, both telltales
// of a mislabeled source charset slipping past utf8.Valid.
func looksLikeGibberish(s string) bool {
	if len(s) == 0 {
		return false
	}
	var replacementCount, cjkExtBCount, total int
	for _, r := range s {
		total++
		if r == '�' {
			replacementCount++
		}
		if r >= 0x20000 && r <= 0x2A6DF {
			cjkExtBCount++
		}
	}
	if total > 10 && float64(replacementCount)/float64(total) > 0.1 {
		return true
	}
	if total > 20 && float64(cjkExtBCount)/float64(total) > 0.05 {
		return true
	}
	return false
}

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([^"'\s>]+)`)
var metaHTTPEquivRe = regexp.MustCompile(`(?i)<meta[^>]+content=["'][^"']*charset=([^"'\s;]+)`)

// extractCharsetFromHTML looks for a charset declared in an HTML meta tag,
// used when the MIME Content-Type header omits one.
func extractCharsetFromHTML(html []byte) string {
	head := html
	if len(head) > 1024 {
		head = head[:1024]
	}
	if m := metaCharsetRe.FindSubmatch(head); len(m) > 1 {
		return string(m[1])
	}
	if m := metaHTTPEquivRe.FindSubmatch(head); len(m) > 1 {
		return string(m[1])
	}
	return ""
}
