package server

import (
	"net/http"
	"strings"
)

const unknownVoter = "unknown"

// voterIdentity derives the rate-limit identity from the request's network
// origin: the first entry of X-Forwarded-For, then X-Real-IP, then "unknown".
// This is a deterrent key, not an authorization mechanism; it can be spoofed
// or shared behind a gateway, which is why the limit stays soft.
func voterIdentity(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return unknownVoter
}
