package models

import (
	"net/url"
	"strings"
	"time"
)

// UnknownIdentity is the correlation key used when an event has no source.
const UnknownIdentity = "unknown"

// Metadata keys written by Normalize.
const (
	MetaDecodedURL = "decoded_url"
	MetaCleanURL   = "clean_url"
)

// Event represents a single access-log request observed upstream.
// Treat it as immutable: Normalize and WithIdentity return copies.
type Event struct {
	URL            string            `json:"url"`
	Timestamp      time.Time         `json:"timestamp"`
	StatusCode     *int              `json:"status_code,omitempty"`
	SourceIdentity string            `json:"source_identity"`
	UserAgent      string            `json:"user_agent,omitempty"`
	Method         string            `json:"method,omitempty"`
	Referer        string            `json:"referer,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewEvent builds an event for url with the default identity.
func NewEvent(rawURL string) Event {
	return Event{
		URL:            rawURL,
		SourceIdentity: UnknownIdentity,
	}
}

// Identity returns the correlation key, never empty.
func (e Event) Identity() string {
	if id := strings.TrimSpace(e.SourceIdentity); id != "" {
		return id
	}
	return UnknownIdentity
}

// WithIdentity returns a copy of e keyed by identity.
func (e Event) WithIdentity(identity string) Event {
	out := e.clone()
	out.SourceIdentity = identity
	return out
}

// AnalysisURL is the URL string the detectors should look at.
func (e Event) AnalysisURL() string {
	if clean, ok := e.Metadata[MetaCleanURL]; ok && clean != "" {
		return clean
	}
	return e.URL
}

// Normalize returns a new event with decoded and cleaned URL variants in
// metadata. The URL field itself keeps the raw value.
func (e Event) Normalize() Event {
	out := e.clone()

	raw := strings.TrimSpace(e.URL)
	decoded := decodeURL(raw)
	cleaned := strings.TrimSpace(decoded)
	if cleaned != "" && !strings.Contains(cleaned, "://") && !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}

	out.URL = raw
	out.Metadata[MetaDecodedURL] = decoded
	out.Metadata[MetaCleanURL] = cleaned

	out.Method = strings.ToUpper(strings.TrimSpace(e.Method))
	if out.Method == "" {
		out.Method = "GET"
	}
	out.SourceIdentity = e.Identity()
	out.UserAgent = strings.TrimSpace(e.UserAgent)
	out.Referer = strings.TrimSpace(e.Referer)
	out.RequestID = strings.TrimSpace(e.RequestID)
	return out
}

func (e Event) clone() Event {
	out := e
	out.Metadata = make(map[string]string, len(e.Metadata)+2)
	for k, v := range e.Metadata {
		out.Metadata[k] = v
	}
	if e.StatusCode != nil {
		code := *e.StatusCode
		out.StatusCode = &code
	}
	return out
}

// decodeURL percent-decodes once, leaving the input untouched when it holds
// malformed escapes.
func decodeURL(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
