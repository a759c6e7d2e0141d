package mime

import (
	"net/url"
	"regexp"
	"strings"
)

// trackerExactParams and trackerPrefixParams enumerate the query parameters
// stripped from every URL before HTML rendering.
var trackerExactParams = map[string]bool{
	"gclid": true, "dclid": true, "fbclid": true, "msclkid": true, "yclid": true,
	"mc_eid": true, "mc_cid": true, "mkt_tok": true, "lipi": true, "loid": true,
	"lang": true, "trackingId": true, "trackId": true, "tracking": true,
	"token": true, "otpToken": true, "sparams": true,
}

var trackerPrefixParams = []string{
	"utm_", "fbclid", "gclid", "dclid", "msclkid", "yclid", "mc_", "mkt_", "trk",
	"trkEmail", "mid", "li_", "eid", "cid", "ref", "spm", "sr_", "sc_", "oly_",
	"campaignId", "emailKey", "uuid", "tracking", "token",
}

// redirectUnwrapRules maps a known redirector host (or host substring) to
// the query parameter that carries the real destination URL.
var redirectUnwrapRules = []struct {
	hostContains string
	targetParams []string
}{
	{"linkedin.com/redir", []string{"url"}},
	{"lnkd.in", []string{"url"}},
	{"redir.aspx", []string{"url"}}, // Outlook's safelinks-style redirector path
	{"", []string{"url", "u", "target", "dest", "redirect", "redirect_uri"}}, // generic fallback, any host
}

const maxRedirectUnwrapDepth = 5

var hrefRe = regexp.MustCompile(`(?i)(href|src)(=["'])([^"']+)(["'])`)

// cleanHTMLURLs rewrites every href/src URL in an HTML document: recursively
// unwrapping known redirect wrappers, then stripping tracking parameters.
// URLs without a query string are returned byte-for-byte (B3).
func cleanHTMLURLs(html string) string {
	return hrefRe.ReplaceAllStringFunc(html, func(match string) string {
		parts := hrefRe.FindStringSubmatch(match)
		if parts == nil {
			return match
		}
		attr, quoteOpen, rawURL, quoteClose := parts[1], parts[2], parts[3], parts[4]
		cleaned := CleanURL(rawURL)
		return attr + quoteOpen + cleaned + quoteClose
	})
}

// CleanURL unwraps known redirect patterns and strips tracking query
// parameters from a single URL string. Malformed URLs are returned as-is.
func CleanURL(raw string) string {
	current := raw
	for i := 0; i < maxRedirectUnwrapDepth; i++ {
		unwrapped, ok := unwrapRedirect(current)
		if !ok {
			break
		}
		current = unwrapped
	}
	return stripTrackingParams(current)
}

func unwrapRedirect(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw, false
	}
	q := u.Query()

	for _, rule := range redirectUnwrapRules {
		if rule.hostContains != "" && !strings.Contains(strings.ToLower(u.Host+u.Path), strings.ToLower(rule.hostContains)) {
			continue
		}
		for _, param := range rule.targetParams {
			if target := q.Get(param); target != "" {
				if decoded, err := url.QueryUnescape(target); err == nil {
					target = decoded
				}
				if looksLikeURL(target) {
					return target, true
				}
			}
		}
		if rule.hostContains != "" {
			// A specific redirector host matched but none of its target
			// params were present; don't fall through to the generic rule.
			return raw, false
		}
	}
	return raw, false
}

func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func stripTrackingParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	q := u.Query()
	changed := false
	for key := range q {
		if isTrackingParam(key) {
			q.Del(key)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isTrackingParam(key string) bool {
	if trackerExactParams[key] {
		return true
	}
	lower := strings.ToLower(key)
	for _, prefix := range trackerPrefixParams {
		if strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}
