package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nshruti113/url-risk-dashboard/internal/features"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

var (
	sqlPattern = regexp.MustCompile(`(?i)('|%27)\s*or\s*1=1|--|union\s+select|%3d|%27`)
	xssPattern = regexp.MustCompile(`(?i)<script|javascript:|onerror=|onload=|%3cscript%3e`)
)

// Result holds the rule hits for one URL in evaluation order, with one
// explanation per hit.
type Result struct {
	Hits         []models.RuleID `json:"rules_triggered"`
	Explanations []string        `json:"explanations"`
}

// Has reports whether id fired.
func (r Result) Has(id models.RuleID) bool {
	for _, h := range r.Hits {
		if h == id {
			return true
		}
	}
	return false
}

func (r Result) clone() Result {
	return Result{
		Hits:         append([]models.RuleID(nil), r.Hits...),
		Explanations: append([]string(nil), r.Explanations...),
	}
}

func (r *Result) add(id models.RuleID, explanation string) {
	r.Hits = append(r.Hits, id)
	r.Explanations = append(r.Explanations, explanation)
}

// Engine evaluates URLs against the fixed signature set. It assigns no label
// or score. Evaluate is pure; the optional LRU only memoises results.
type Engine struct {
	cache  *lru.Cache[string, Result]
	logger *slog.Logger
}

// NewEngine creates an engine. cacheSize <= 0 disables memoisation.
func NewEngine(cacheSize int, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{logger: logger}
	if cacheSize > 0 {
		cache, err := lru.New[string, Result](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create rule cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Evaluate runs every signature check against url. All checks run; none
// short-circuits. A fault inside evaluation yields no hits.
func (e *Engine) Evaluate(url string) Result {
	if url == "" {
		return Result{}
	}
	if e.cache != nil {
		if cached, ok := e.cache.Get(url); ok {
			return cached.clone()
		}
	}

	res, err := e.safeEvaluate(url)
	if err != nil {
		e.logger.Warn("Rule evaluation failed", "url", url, "error", err)
		return Result{}
	}

	if e.cache != nil {
		e.cache.Add(url, res.clone())
	}
	return res
}

func (e *Engine) safeEvaluate(url string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("rule evaluation panic: %v", r)
		}
	}()
	return evaluate(url), nil
}

func evaluate(url string) Result {
	var res Result
	lower := strings.ToLower(url)
	host := features.ParseURL(url).Host

	if sqlPattern.MatchString(lower) {
		res.add(models.RuleSQLInjection, "SQLi indicators found (e.g., UNION/OR=1).")
	}
	if xssPattern.MatchString(lower) {
		res.add(models.RuleXSS, "XSS indicators found (e.g., <script>, javascript:).")
	}
	if kws := features.MatchedKeywords(lower); len(kws) > 0 {
		res.add(models.RuleSuspiciousKeyword, "Suspicious keywords present ("+strings.Join(kws, "/")+").")
	}
	if features.IsIPv4Host(host) {
		res.add(models.RuleIPBasedURL, "Domain is a raw IPv4 address.")
	}

	// one hit at most; high-risk wins over medium-risk
	tld := features.TopLevelDomain(host)
	if _, ok := features.HighRiskTLDs[tld]; ok {
		res.add(models.RuleAbusedTLD, "High-risk TLD detected: ."+tld)
	} else if _, ok := features.MediumRiskTLDs[tld]; ok {
		res.add(models.RuleAbusedTLD, "Medium-risk TLD detected: ."+tld)
	}

	return res
}
