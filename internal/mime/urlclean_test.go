package mime

import (
	"strings"
	"testing"
)

func TestCleanURLStripsExactTrackingParam(t *testing.T) {
	got := CleanURL("https://example.com/page?gclid=abc123&id=5")
	if strings.Contains(got, "gclid") {
		t.Errorf("CleanURL left gclid in %q", got)
	}
	if !strings.Contains(got, "id=5") {
		t.Errorf("CleanURL dropped unrelated param in %q", got)
	}
}

func TestCleanURLStripsPrefixTrackingParam(t *testing.T) {
	got := CleanURL("https://example.com/page?utm_source=newsletter&utm_medium=email")
	if strings.Contains(got, "utm_") {
		t.Errorf("CleanURL left utm_ params in %q", got)
	}
}

func TestCleanURLNoQueryUnchanged(t *testing.T) {
	raw := "https://example.com/page"
	if got := CleanURL(raw); got != raw {
		t.Errorf("CleanURL(%q) = %q, want unchanged (no query string)", raw, got)
	}
}

func TestCleanURLMalformedReturnedAsIs(t *testing.T) {
	raw := "://not a url"
	if got := CleanURL(raw); got != raw {
		t.Errorf("CleanURL(%q) = %q, want unchanged for malformed input", raw, got)
	}
}

func TestCleanURLUnwrapsKnownRedirector(t *testing.T) {
	wrapped := "https://lnkd.in/redirect?url=https%3A%2F%2Freal-site.example.com%2Farticle"
	got := CleanURL(wrapped)
	if !strings.Contains(got, "real-site.example.com") {
		t.Errorf("CleanURL(%q) = %q, want unwrapped to real-site.example.com", wrapped, got)
	}
}

func TestCleanHTMLURLsRewritesHrefAndSrc(t *testing.T) {
	html := `<a href="https://example.com/a?utm_source=x">link</a><img src="https://example.com/b?fbclid=y">`
	got := cleanHTMLURLs(html)
	if strings.Contains(got, "utm_source") || strings.Contains(got, "fbclid") {
		t.Errorf("cleanHTMLURLs left tracking params in %q", got)
	}
}
