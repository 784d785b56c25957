package payload

import (
	"regexp"
	"strings"
)

var (
	trailingCommaObjRe = regexp.MustCompile(`,\s*}`)
	trailingCommaArrRe = regexp.MustCompile(`,\s*]`)
)

// repairStep rewrites the candidate; steps run in order.
type repairStep func(string) string

var repairChain = []repairStep{
	stripBOM,
	unwrapDoubledBraces,
	singleToDoubleQuotes,
	dropTrailingCommas,
}

// Repair fixes the malformations seen in agent replies: a byte-order mark,
// a doubled-brace wrapper, single-quoted strings and trailing commas. The
// result is not guaranteed to parse.
func Repair(candidate string) string {
	s := strings.TrimSpace(candidate)
	for _, step := range repairChain {
		s = step(s)
	}
	return s
}

func stripBOM(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}

// unwrapDoubledBraces handles three cases:
//
//	{{"k": "v"}}"   stray quote after a doubled wrapper: drop one leading
//	                brace and the trailing `}"`
//	{{ ... }}       generic wrapper: drop one brace at each end
//	a {{ ... }} b   one doubled pair inside the text: collapse both and keep
//	                only the collapsed object
func unwrapDoubledBraces(s string) string {
	switch {
	case strings.HasPrefix(s, `{{"`) && strings.HasSuffix(s, `}}"`):
		return s[1 : len(s)-2]
	case strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}"):
		return s[1 : len(s)-1]
	case strings.Count(s, "{{") == 1 && strings.Count(s, "}}") == 1:
		open := strings.Index(s, "{{")
		closing := strings.LastIndex(s, "}}")
		if closing < open {
			return s
		}
		return "{" + s[open+2:closing] + "}"
	}
	return s
}

func singleToDoubleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `"`)
}

func dropTrailingCommas(s string) string {
	s = trailingCommaObjRe.ReplaceAllString(s, "}")
	return trailingCommaArrRe.ReplaceAllString(s, "]")
}
