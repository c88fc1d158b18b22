package features

import (
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Columns is the numeric feature order shared by training and inference.
// Every matrix row built anywhere in the module follows this order.
var Columns = [...]string{
	"url_length",
	"domain_length",
	"path_length",
	"query_length",
	"num_digits",
	"num_special_chars",
	"num_subdomains",
	"digit_ratio",
	"symbol_ratio",
	"uppercase_ratio",
	"shannon_entropy",
	"suspicious_keyword_count",
	"has_ip_address",
	"tld_risk_score",
}

// NumColumns is the width of a numeric feature Vector.
const NumColumns = len(Columns)

// Vector is one row of numeric features in Columns order.
type Vector [NumColumns]float64

// Map returns the vector keyed by column name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, NumColumns)
	for i, name := range Columns {
		out[name] = v[i]
	}
	return out
}

// Get returns the value of the named column.
func (v Vector) Get(column string) (float64, bool) {
	for i, name := range Columns {
		if name == column {
			return v[i], true
		}
	}
	return 0, false
}

// Extract computes the numeric features of url.
func Extract(url string) Vector {
	p := ParseURL(url)

	urlLen := utf8.RuneCountInString(url)
	var digits, special, upper int
	for _, r := range url {
		if unicode.IsDigit(r) {
			digits++
		}
		if unicode.IsUpper(r) {
			upper++
		}
		if !isASCIIAlnum(r) {
			special++
		}
	}

	ratio := func(n int) float64 {
		if urlLen == 0 {
			return 0
		}
		return float64(n) / float64(urlLen)
	}

	subdomains := 0
	if p.Host != "" {
		subdomains = max(0, strings.Count(p.Host, ".")-1)
	}
	hasIP := 0.0
	if IsIPv4Host(p.Host) {
		hasIP = 1
	}

	return Vector{
		float64(urlLen),
		float64(utf8.RuneCountInString(p.Netloc)),
		float64(utf8.RuneCountInString(p.Path)),
		float64(utf8.RuneCountInString(p.Query)),
		float64(digits),
		float64(special),
		float64(subdomains),
		ratio(digits),
		ratio(special),
		ratio(upper),
		ShannonEntropy(url),
		float64(len(MatchedKeywords(url))),
		hasIP,
		float64(TLDRisk(p.Host)),
	}
}

// ExtractBatch extracts every URL concurrently. Output order matches input.
func ExtractBatch(urls []string) []Vector {
	out := make([]Vector, len(urls))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, u := range urls {
		g.Go(func() error {
			out[i] = Extract(u)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
