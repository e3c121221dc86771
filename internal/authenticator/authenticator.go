package auth

import (
	"net/http"
	"strings"

	internal_errors "github.com/bricks-cloud/byokllm/internal/errors"
)

const (
	authorizationHeader = "Authorization"

	betaHeader           = "OpenAI-Beta"
	assistantBetaVersion = "assistants=v2"
)

var (
	ErrAuthHeaderMissing = internal_errors.NewAuthError("authorization header not found")
	ErrAuthHeaderNotText = internal_errors.NewAuthError("authorization header is not valid text")
	ErrApiKeyEmpty       = internal_errors.NewAuthError("api key is empty")
)

// UpstreamConfig is everything a single request needs to talk to the
// upstream API: the caller's credential and any protocol-version headers.
// It is owned by one request and must never be reused or cached.
type UpstreamConfig struct {
	APIKey       string
	ExtraHeaders map[string]string
}

// ResolveUpstreamConfig derives an upstream client configuration from the
// inbound request headers. It is a pure function of (headers, flag): no
// I/O, no retained state, and the credential is never logged.
//
// The Authorization header is located case-insensitively. A leading
// "Bearer " or "bearer " is stripped; any other value, including an
// all-caps "BEARER " scheme, passes through verbatim so clients that omit
// the scheme still work. The key must be non-empty after stripping.
//
// When assistantsBeta is set the configuration carries the protocol-version
// header the upstream requires for the assistants, threads, messages and
// runs resources.
func ResolveUpstreamConfig(h http.Header, assistantsBeta bool) (*UpstreamConfig, error) {
	raw, found := authorizationValue(h)
	if !found {
		return nil, ErrAuthHeaderMissing
	}

	if !isVisibleText(raw) {
		return nil, ErrAuthHeaderNotText
	}

	apiKey := raw
	if strings.HasPrefix(raw, "Bearer ") {
		apiKey = strings.TrimPrefix(raw, "Bearer ")
	} else if strings.HasPrefix(raw, "bearer ") {
		apiKey = strings.TrimPrefix(raw, "bearer ")
	}

	if len(apiKey) == 0 {
		return nil, ErrApiKeyEmpty
	}

	cfg := &UpstreamConfig{
		APIKey: apiKey,
	}

	if assistantsBeta {
		cfg.ExtraHeaders = map[string]string{
			betaHeader: assistantBetaVersion,
		}
	}

	return cfg, nil
}

// authorizationValue looks the header up by its canonical name first, then
// falls back to a case-insensitive scan so non-canonical header maps still
// resolve.
func authorizationValue(h http.Header) (string, bool) {
	if vs, ok := h[authorizationHeader]; ok && len(vs) != 0 {
		return vs[0], true
	}

	for k, vs := range h {
		if strings.EqualFold(k, authorizationHeader) && len(vs) != 0 {
			return vs[0], true
		}
	}

	return "", false
}

// isVisibleText reports whether every byte is visible ASCII, space or tab,
// the subset a header value must stay inside to be treated as a string.
func isVisibleText(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}
