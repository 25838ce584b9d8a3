// Package classify labels a prompt as code, writing, or analysis by
// keyword substring match, the cheapest classifier that can still steer
// provider selection toward a specialist.
package classify

import "strings"

type Label string

const (
	Code     Label = "code"
	Writing  Label = "writing"
	Analysis Label = "analysis"
)

// Keywords holds the two ordered keyword lists the classifier checks.
// Code is checked before Writing; anything matching neither is Analysis.
type Keywords struct {
	Code    []string `yaml:"code" json:"code"`
	Writing []string `yaml:"writing" json:"writing"`
}

// Default mirrors the keyword lists spec.md names as defaults.
func Default() Keywords {
	return Keywords{
		Code:    []string{"def ", "class ", "import ", "exception", "function", "algorithm"},
		Writing: []string{"essay", "blog", "email", "summarize", "article", "letter"},
	}
}

// Classify lowercases prompt and checks it against kw.Code then kw.Writing.
func Classify(prompt string, kw Keywords) Label {
	lower := strings.ToLower(prompt)
	if containsAny(lower, kw.Code) {
		return Code
	}
	if containsAny(lower, kw.Writing) {
		return Writing
	}
	return Analysis
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
