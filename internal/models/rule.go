package models

import "strings"

// RuleID names a URL signature rule.
type RuleID string

const (
	RuleSQLInjection      RuleID = "SQL_INJECTION_PATTERN"
	RuleXSS               RuleID = "XSS_PATTERN"
	RuleSuspiciousKeyword RuleID = "SUSPICIOUS_KEYWORD"
	RuleIPBasedURL        RuleID = "IP_BASED_URL"
	RuleAbusedTLD         RuleID = "ABUSED_TLD"
)

var rulePhrases = map[RuleID]string{
	RuleSQLInjection:      "SQL injection style payloads",
	RuleXSS:               "cross-site scripting indicators",
	RuleSuspiciousKeyword: "suspicious keywords",
	RuleIPBasedURL:        "direct IP-based access",
	RuleAbusedTLD:         "use of a high-risk top-level domain",
}

var ruleSeverity = map[RuleID]Severity{
	RuleSQLInjection:      SeverityHigh,
	RuleXSS:               SeverityMedium,
	RuleSuspiciousKeyword: SeverityLow,
	RuleIPBasedURL:        SeverityMedium,
	RuleAbusedTLD:         SeverityLow,
}

// Phrase is the human-readable rule name used in explanations.
func (r RuleID) Phrase() string {
	if p, ok := rulePhrases[r]; ok {
		return p
	}
	// "SOME_RULE" -> "Some Rule"
	words := strings.Split(strings.ToLower(string(r)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Severity is the default severity of a finding raised by this rule.
func (r RuleID) Severity() Severity {
	if s, ok := ruleSeverity[r]; ok {
		return s
	}
	return SeverityMedium
}

// AttackType maps a rule hit onto an attack family label.
func (r RuleID) AttackType() string {
	switch r {
	case RuleSQLInjection:
		return AttackSQLInjection
	case RuleXSS:
		return AttackXSS
	default:
		return AttackSuspicious
	}
}

// HighSeverity reports whether the rule earns the scorer's bonus.
func (r RuleID) HighSeverity() bool {
	return r == RuleSQLInjection || r == RuleXSS
}

// Attack family labels.
const (
	AttackNormal             = "Normal"
	AttackSQLInjection       = "SQL Injection"
	AttackXSS                = "XSS"
	AttackDirectoryTraversal = "Directory Traversal"
	AttackCommandInjection   = "Command Injection"
	AttackSSRF               = "SSRF"
	AttackSuspicious         = "Suspicious"
)

// Classifier labels.
const (
	LabelBenign    = "benign"
	LabelMalicious = "malicious"
)

// IsBenignLabel reports whether label denotes normal traffic.
func IsBenignLabel(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "normal", LabelBenign:
		return true
	}
	return false
}
