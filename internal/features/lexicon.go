package features

import (
	"strings"
)

// SuspiciousKeywords are matched case-insensitively as substrings. Each
// keyword counts on its own, so overlapping keywords both count.
var SuspiciousKeywords = []string{"login", "verify", "update", "secure", "admin", "cmd", "wp", "shell", "exec"}

// HighRiskTLDs and MediumRiskTLDs are the abused top-level domains.
var (
	HighRiskTLDs   = map[string]struct{}{"tk": {}, "ml": {}, "ga": {}, "cf": {}}
	MediumRiskTLDs = map[string]struct{}{"ru": {}, "cn": {}, "xyz": {}}
)

// placeholderOrigin makes path-only strings parse like absolute URLs.
const placeholderOrigin = "http://example.local"

// ParsedURL holds the pieces of a URL the extractors care about.
type ParsedURL struct {
	Scheme string
	// Netloc is the raw authority, including userinfo and port.
	Netloc string
	// Host is Netloc without userinfo and port, lower-cased.
	Host  string
	Path  string
	Query string
}

// ParseURL splits raw into its components. It never fails: input without
// a scheme is a relative path, rooted at "/" like Event.Normalize does and
// parsed under a placeholder origin.
func ParseURL(raw string) ParsedURL {
	target := raw
	switch {
	case target == "", strings.Contains(target, "://"):
	case strings.HasPrefix(target, "/"):
		target = placeholderOrigin + target
	default:
		target = placeholderOrigin + "/" + target
	}

	var p ParsedURL
	p.Scheme, target, _ = strings.Cut(target, "://")
	p.Scheme = strings.ToLower(p.Scheme)

	end := strings.IndexAny(target, "/?#")
	if end < 0 {
		end = len(target)
	}
	p.Netloc = target[:end]
	rest := target[end:]

	rest, _, _ = strings.Cut(rest, "#")
	rest, p.Query, _ = strings.Cut(rest, "?")
	p.Path = stripParams(rest)
	p.Host = hostOnly(p.Netloc)
	return p
}

// stripParams drops ";params" from the last path segment.
func stripParams(path string) string {
	last := strings.LastIndex(path, "/")
	if i := strings.Index(path[last+1:], ";"); i >= 0 {
		return path[:last+1+i]
	}
	return path
}

func hostOnly(netloc string) string {
	host := netloc
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if strings.HasPrefix(host, "[") {
		if i := strings.Index(host, "]"); i >= 0 {
			return strings.ToLower(host[1:i])
		}
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.ToLower(host)
}

// IsIPv4Host reports whether host (port already stripped) is a dotted quad
// with every octet in 0..255.
func IsIPv4Host(host string) bool {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		val := 0
		for i := 0; i < len(part); i++ {
			c := part[i]
			if c < '0' || c > '9' {
				return false
			}
			val = val*10 + int(c-'0')
		}
		if val > 255 {
			return false
		}
	}
	return true
}

// TopLevelDomain returns the last label of host, or "" when host has no dot.
func TopLevelDomain(host string) string {
	i := strings.LastIndex(host, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(host[i+1:])
}

// TLDRisk scores a host: 3 high-risk TLD, 2 medium-risk, 1 otherwise.
func TLDRisk(host string) int {
	tld := TopLevelDomain(host)
	if _, ok := HighRiskTLDs[tld]; ok {
		return 3
	}
	if _, ok := MediumRiskTLDs[tld]; ok {
		return 2
	}
	return 1
}

// MatchedKeywords returns the suspicious keywords present in url, in list order.
func MatchedKeywords(url string) []string {
	lower := strings.ToLower(url)
	var out []string
	for _, kw := range SuspiciousKeywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}
