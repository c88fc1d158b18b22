package features

import "math"

// ShannonEntropy calculates the character-frequency Shannon entropy of s in
// bits. Empty input has zero entropy.
func ShannonEntropy(s string) float64 {
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	return entropy(counts, total)
}

func entropy(counts map[rune]int, total int) float64 {
	if total == 0 {
		return 0.0
	}

	e := 0.0
	for _, count := range counts {
		if count > 0 {
			p := float64(count) / float64(total)
			e -= p * math.Log2(p)
		}
	}

	return e
}
