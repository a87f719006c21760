package lti

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strings"
)

// Parameter names defined by the OAuth 1.0 signing scheme.
const (
	ParamConsumerKey     = "oauth_consumer_key"
	ParamSignature       = "oauth_signature"
	ParamSignatureMethod = "oauth_signature_method"
	ParamTimestamp       = "oauth_timestamp"
	ParamNonce           = "oauth_nonce"
)

// ValidateSignature recomputes the HMAC-SHA1 request signature from the
// submitted parameters and compares it, constant-time, to the signature the
// LMS sent.
//
// The url must be the exact public URL the LMS signed against, including any
// reverse-proxy scheme/host/prefix; a mismatch fails closed. Timestamp and
// nonce are carried in params but not checked for replay.
func ValidateSignature(params map[string]string, method, url, secret string) bool {
	supplied, ok := params[ParamSignature]
	if !ok || supplied == "" {
		return false
	}

	base := signatureBaseString(params, method, url)
	key := percentEncode(secret) + "&"

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(supplied))
}

func signatureBaseString(params map[string]string, method, url string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if key == ParamSignature {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, percentEncode(key)+"="+percentEncode(params[key]))
	}

	paramString := strings.Join(pairs, "&")

	return strings.ToUpper(method) + "&" + percentEncode(url) + "&" + percentEncode(paramString)
}

// percentEncode applies RFC 5849 §3.6 encoding: unreserved characters pass
// through, everything else becomes uppercase %XX.
func percentEncode(input string) string {
	var builder strings.Builder
	for i := 0; i < len(input); i++ {
		b := input[i]
		if isUnreserved(b) {
			builder.WriteByte(b)
			continue
		}
		builder.WriteByte('%')
		builder.WriteByte(upperHex[b>>4])
		builder.WriteByte(upperHex[b&0x0f])
	}
	return builder.String()
}

const upperHex = "0123456789ABCDEF"

func isUnreserved(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	}
	return false
}

// SignParams computes the signature the LMS would attach to params. Used by
// tests and by tooling that emulates a consumer.
func SignParams(params map[string]string, method, url, secret string) string {
	base := signatureBaseString(params, method, url)
	key := percentEncode(secret) + "&"

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
