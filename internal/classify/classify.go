// Package classify partitions free text into file, hash, and network indicators
// using token-shape rules.
package classify

import (
	"sort"
	"strings"
)

// Category is the indicator class a token belongs to.
type Category string

// Categories, listed in rule priority order.
const (
	CategoryFile    Category = "file"
	CategoryHash    Category = "hash"
	CategoryNetwork Category = "network"
)

// borderChars are stripped from both ends of every token before classification.
const borderChars = `,.()[]{}<>"'`

var fileExtensions = []string{".exe", ".dll", ".bat", ".ps1"}

// rule is one entry of the ordered rule list. The first rule whose match
// returns true claims the token; later rules are never consulted.
type rule struct {
	category  Category
	match     func(token string) bool
	normalize func(token string) string
}

var rules = []rule{
	{category: CategoryFile, match: hasFileExtension, normalize: identity},
	{category: CategoryHash, match: isHexDigest, normalize: strings.ToLower},
	{category: CategoryNetwork, match: looksNetwork, normalize: identity},
}

// Result holds the deduplicated, sorted values of each category.
type Result struct {
	File    []string `json:"file"`
	Hash    []string `json:"hash"`
	Network []string `json:"network"`
}

// Values returns the slice for category c.
func (r Result) Values(c Category) []string {
	switch c {
	case CategoryFile:
		return r.File
	case CategoryHash:
		return r.Hash
	case CategoryNetwork:
		return r.Network
	}
	return nil
}

// Empty reports whether no token was classified.
func (r Result) Empty() bool {
	return len(r.File) == 0 && len(r.Hash) == 0 && len(r.Network) == 0
}

// Text tokenizes text on whitespace and classifies every token.
// It never fails; unclassified tokens are dropped.
func Text(text string) Result {
	sets := map[Category]map[string]struct{}{
		CategoryFile:    {},
		CategoryHash:    {},
		CategoryNetwork: {},
	}
	for _, raw := range strings.Fields(text) {
		cat, value, ok := Token(raw)
		if !ok {
			continue
		}
		sets[cat][value] = struct{}{}
	}
	return Result{
		File:    sortedKeys(sets[CategoryFile]),
		Hash:    sortedKeys(sets[CategoryHash]),
		Network: sortedKeys(sets[CategoryNetwork]),
	}
}

// Token trims the border characters from raw and classifies it by the first
// matching rule. It returns the normalized value stored for that category.
func Token(raw string) (Category, string, bool) {
	token := strings.Trim(raw, borderChars)
	if token == "" {
		return "", "", false
	}
	for _, r := range rules {
		if r.match(token) {
			return r.category, r.normalize(token), true
		}
	}
	return "", "", false
}

func hasFileExtension(token string) bool {
	lower := strings.ToLower(token)
	for _, ext := range fileExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isHexDigest(token string) bool {
	switch len(token) {
	case 32, 40, 64:
	default:
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}

// looksNetwork is deliberately loose: IPs, domains, URLs and e-mail addresses
// all contain a dot or an at sign.
func looksNetwork(token string) bool {
	return strings.ContainsAny(token, ".@")
}

func identity(s string) string { return s }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
