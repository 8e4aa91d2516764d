package auth

import (
	"net/http"
	"strings"
)

const bearerPrefix = "bearer "

// ExtractBearerToken pulls the JWT out of the Authorization header,
// stripping the Bearer prefix case-insensitively.
func ExtractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(header), bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return ""
}

// ExtractToken looks for a token in the Authorization header first, then in
// the named query parameter (default "token"). WebSocket clients cannot
// always set headers, hence the query fallback.
func ExtractToken(r *http.Request, queryParam string) string {
	if token := ExtractBearerToken(r); token != "" {
		return token
	}
	if r == nil || r.URL == nil {
		return ""
	}
	if queryParam == "" {
		queryParam = "token"
	}
	return strings.TrimSpace(r.URL.Query().Get(queryParam))
}
