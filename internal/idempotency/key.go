package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrKeyMismatch is returned when a request supplies an idempotency key in
// both the transport header and the body and the two disagree.
var ErrKeyMismatch = errors.New("idempotency key mismatch between header and body")

// trackingParams is the fixed denylist of query parameters stripped during
// canonicalization. Any key prefixed utm_ is stripped as well.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"gclsrc":  {},
	"dclid":   {},
	"msclkid": {},
	"mc_cid":  {},
	"mc_eid":  {},
	"igshid":  {},
	"twclid":  {},
	"wbraid":  {},
	"gbraid":  {},
}

// Reconcile resolves the effective caller-supplied key from the transport
// header and body field. Both present and differing is a validation error;
// the empty string means no key was supplied.
func Reconcile(headerKey, bodyKey string) (string, error) {
	headerKey = strings.TrimSpace(headerKey)
	bodyKey = strings.TrimSpace(bodyKey)
	if headerKey != "" && bodyKey != "" && headerKey != bodyKey {
		return "", ErrKeyMismatch
	}
	if headerKey != "" {
		return headerKey, nil
	}
	return bodyKey, nil
}

// CanonicalizeURL rewrites a capture URL into its canonical form: credentials
// and fragment stripped, scheme and host lowercased, default port dropped,
// tracking query parameters removed, and the surviving parameters sorted by
// key then value. The returned host has any port stripped.
func CanonicalizeURL(raw string) (canonical string, host string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("url is empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return "", "", errors.New("url has no host")
	}

	parsed.Scheme = scheme
	parsed.User = nil
	parsed.Fragment = ""

	hostname := strings.ToLower(parsed.Hostname())
	port := parsed.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		parsed.Host = hostname + ":" + port
	} else {
		parsed.Host = hostname
	}

	parsed.RawQuery = canonicalQuery(parsed.Query())
	return parsed.String(), hostname, nil
}

func canonicalQuery(values url.Values) string {
	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(values))
	for key, vals := range values {
		if isTrackingParam(key) {
			continue
		}
		for _, v := range vals {
			pairs = append(pairs, pair{key: key, value: v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

func isTrackingParam(key string) bool {
	lowered := strings.ToLower(key)
	if strings.HasPrefix(lowered, "utm_") {
		return true
	}
	_, ok := trackingParams[lowered]
	return ok
}

// NormalizeIntent reduces free-form intent text to a canonical fingerprint
// input: NFC-normalized, whitespace collapsed, lowercased.
func NormalizeIntent(intent string) string {
	normalized := norm.NFC.String(intent)
	fields := strings.Fields(normalized)
	return strings.ToLower(strings.Join(fields, " "))
}

// CaptureKey derives the default capture idempotency fingerprint from a
// canonical URL and normalized intent.
func CaptureKey(canonicalURL, normalizedIntent string) string {
	sum := sha256.Sum256([]byte(canonicalURL + "\n" + normalizedIntent))
	return hex.EncodeToString(sum[:])
}

// ProcessKey scopes a process-operation key to an item and mode so the same
// caller key cannot collide across items or modes.
func ProcessKey(itemID, mode, key string) string {
	return "process:" + itemID + ":" + mode + ":" + key
}

// ExportKey scopes an export-operation key to an item.
func ExportKey(itemID, key string) string {
	return itemID + ":" + key
}
