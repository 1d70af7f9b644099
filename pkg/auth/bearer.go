package auth

import "strings"

// BearerToken extracts the token from an Authorization header value. A bare
// token without the scheme is accepted for internal callers.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "bearer") {
		header = strings.TrimSpace(rest)
	} else if strings.EqualFold(header, "bearer") {
		header = ""
	}
	return header, header != ""
}
