package lti

import "strings"

// ForwardedHeaders carries the reverse-proxy forwarding headers relevant to
// rebuilding the public launch URL.
type ForwardedHeaders struct {
	Proto  string // X-Forwarded-Proto
	Host   string // X-Forwarded-Host
	Prefix string // X-Forwarded-Prefix
}

// PublicURL rebuilds the URL the LMS signed against from what the proxy
// forwarded. Forwarded headers win over the values seen on the socket; the
// configured prefix applies only when the proxy did not send one.
//
// The query string is deliberately excluded: LTI basic launches sign form
// parameters, and the launch endpoints take none in the URL.
func PublicURL(scheme, host, path string, forwarded ForwardedHeaders, configuredPrefix string) string {
	if forwarded.Proto != "" {
		scheme = firstForwarded(forwarded.Proto)
	}
	if forwarded.Host != "" {
		host = firstForwarded(forwarded.Host)
	}

	prefix := forwarded.Prefix
	if prefix == "" {
		prefix = configuredPrefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return scheme + "://" + host + prefix + path
}

// firstForwarded keeps only the first hop of a comma-separated forwarded
// header value.
func firstForwarded(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
