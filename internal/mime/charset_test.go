package mime

import "testing"

func TestDecodeCharsetUTF8Passthrough(t *testing.T) {
	content := []byte("plain ascii content")
	got := decodeCharset(content, "utf-8")
	if got != string(content) {
		t.Errorf("decodeCharset = %q, want unchanged %q", got, string(content))
	}
}

func TestDecodeCharsetUnknownDeclaredFallsBack(t *testing.T) {
	content := []byte("fallback text")
	got := decodeCharset(content, "not-a-real-charset")
	if got != string(content) {
		t.Errorf("decodeCharset = %q, want unchanged fallback %q", got, string(content))
	}
}

func TestDecodeCharsetAlias(t *testing.T) {
	// gb2312 is aliased to gbk; ASCII-only input should decode unchanged
	// either way since gbk is a superset of ASCII.
	content := []byte("hello")
	got := decodeCharset(content, "gb2312")
	if got != "hello" {
		t.Errorf("decodeCharset(gb2312 alias) = %q, want %q", got, "hello")
	}
}

func TestExtractCharsetFromHTMLMetaCharset(t *testing.T) {
	html := []byte(`<html><head><meta charset="iso-8859-1"></head><body>x</body></html>`)
	got := extractCharsetFromHTML(html)
	if got != "iso-8859-1" {
		t.Errorf("extractCharsetFromHTML = %q, want %q", got, "iso-8859-1")
	}
}

func TestExtractCharsetFromHTMLHTTPEquiv(t *testing.T) {
	html := []byte(`<meta http-equiv="Content-Type" content="text/html; charset=windows-1252">`)
	got := extractCharsetFromHTML(html)
	if got != "windows-1252" {
		t.Errorf("extractCharsetFromHTML = %q, want %q", got, "windows-1252")
	}
}

func TestExtractCharsetFromHTMLNone(t *testing.T) {
	html := []byte(`<html><body>no meta tag here</body></html>`)
	if got := extractCharsetFromHTML(html); got != "" {
		t.Errorf("extractCharsetFromHTML = %q, want empty", got)
	}
}

func TestLooksLikeGibberishReplacementChars(t *testing.T) {
	s := "������������"
	if !looksLikeGibberish(s) {
		t.Error("expected a replacement-character-heavy string to be flagged as gibberish")
	}
}

func TestLooksLikeGibberishNormalText(t *testing.T) {
	if looksLikeGibberish("this is ordinary english text") {
		t.Error("ordinary text flagged as gibberish")
	}
}
