// Package chat proxies chat completions to an OpenAI-compatible API.
//
// The model, token cap (2048) and temperature (0.7) are fixed server-side;
// clients only send the conversation. Failures come back as
// ErrNotConfigured, *UpstreamError (non-2xx), ErrInvalidResponse (no
// choice in the body) or an upstream.ErrUnavailable wrap while the
// breaker is open.
package chat
