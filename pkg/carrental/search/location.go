package search

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultSeparators     = `[\s\-,+]+`
	DefaultMinTokenLength = 3
)

// LocationOptions configure a Normalizer.
type LocationOptions struct {
	// Separators is a regular expression matching token boundaries.
	// Whitespace always separates tokens.
	Separators     string
	MinTokenLength int
	StopWords      []string
}

// Normalizer turns free-text location queries into match keywords.
type Normalizer struct {
	sep    *regexp.Regexp
	minLen int
	stop   map[string]struct{}
}

// NewNormalizer compiles opts. Zero values fall back to the defaults.
func NewNormalizer(opts LocationOptions) (*Normalizer, error) {
	pattern := opts.Separators
	if pattern == "" {
		pattern = DefaultSeparators
	}
	sep, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("location separators %q: %w", pattern, err)
	}
	minLen := opts.MinTokenLength
	if minLen <= 0 {
		minLen = DefaultMinTokenLength
	}
	stop := make(map[string]struct{}, len(opts.StopWords))
	for _, w := range opts.StopWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stop[w] = struct{}{}
		}
	}
	return &Normalizer{sep: sep, minLen: minLen, stop: stop}, nil
}

// Keywords is a de-duplicated keyword set in first-seen order.
type Keywords []string

// Empty reports whether the set imposes no location constraint.
func (k Keywords) Empty() bool { return len(k) == 0 }

// String joins the keywords with spaces.
func (k Keywords) String() string { return strings.Join(k, " ") }

// MatchAny reports whether any keyword occurs in address, ignoring case.
// An empty set matches everything.
func (k Keywords) MatchAny(address string) bool {
	if k.Empty() {
		return true
	}
	address = strings.ToLower(address)
	for _, kw := range k {
		if strings.Contains(address, kw) {
			return true
		}
	}
	return false
}

// Normalize lowercases and tokenizes query, dropping short tokens and stop
// words. Blank input yields an empty set.
func (n *Normalizer) Normalize(query string) Keywords {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out Keywords
	seen := make(map[string]struct{})
	for _, part := range n.sep.Split(query, -1) {
		for _, tok := range strings.Fields(part) {
			if len([]rune(tok)) < n.minLen {
				continue
			}
			if _, ok := n.stop[tok]; ok {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}
