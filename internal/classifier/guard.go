package classifier

import "strings"

// KeywordGuard is a minimal safety pre-check: it refuses messages containing
// any configured blocked term. Messages it refuses short-circuit to the
// terminal "rejected" category with no extraction attempted.
type KeywordGuard struct {
	blocked []string
}

// NewKeywordGuard creates a guard from a blocklist. Terms are matched
// case-insensitively as substrings.
func NewKeywordGuard(blocked []string) *KeywordGuard {
	terms := make([]string, 0, len(blocked))
	for _, t := range blocked {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return &KeywordGuard{blocked: terms}
}

// DefaultGuard returns a guard with the stock blocklist.
func DefaultGuard() *KeywordGuard {
	return NewKeywordGuard([]string{
		"weapon", "explosive", "narcotics", "counterfeit",
	})
}

// Allow reports whether the message may proceed to classification.
func (g *KeywordGuard) Allow(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range g.blocked {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}
