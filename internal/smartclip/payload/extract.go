// Package payload turns the free-form reply of the remote agent into a
// canonical intent record: Extract finds the structured object in the text,
// Repair fixes the malformations the agent is known to produce, and
// Normalize maps either payload shape onto intent.Record.
package payload

import (
	"regexp"
	"strings"
)

// extractRule is one step of the extraction chain. It returns the candidate
// and whether the rule matched.
type extractRule func(text string) (string, bool)

// extractChain is evaluated in order; the first rule that matches wins.
var extractChain = []extractRule{
	fromClosedFence,
	fromOpenFence,
	fromFirstObject,
	fromInlinePair,
	fromBareText,
}

var (
	closedFenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n?(.*?)```")
	openFenceRe   = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\\r?\\n?(.*)$")
	inlinePairRe  = regexp.MustCompile(`\{\s*"[^"{}]+"\s*:\s*"[^"{}]*"\s*\}`)
)

// Extract returns the structured-object candidate contained in reply, or ""
// when none is found. A non-empty result always starts with exactly one '{'.
func Extract(reply string) string {
	for _, rule := range extractChain {
		if out, ok := rule(reply); ok {
			out = strings.TrimSpace(out)
			if out == "" || isDoubled(out) {
				continue
			}
			return out
		}
	}
	return ""
}

func fromClosedFence(text string) (string, bool) {
	m := closedFenceRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return spanInBlock(m[1])
}

// fromOpenFence handles a reply that was cut off after the opening marker.
func fromOpenFence(text string) (string, bool) {
	if closedFenceRe.MatchString(text) {
		return "", false
	}
	m := openFenceRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return spanInBlock(m[1])
}

// spanInBlock takes the brace-delimited span of a fenced block. A balanced
// span is returned whole; an unbalanced one is cut where depth first
// returns to zero.
func spanInBlock(block string) (string, bool) {
	start := strings.IndexByte(block, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(block, '}')
	if end < start {
		end = len(block) - 1
	}
	span := block[start : end+1]
	if isDoubled(span) {
		return "", false
	}
	if strings.Count(span, "{") == strings.Count(span, "}") {
		return span, true
	}
	if n := matchBrace(block, start); n > 0 {
		return block[start:n], true
	}
	return "", false
}

// fromFirstObject scans the whole reply for the first unescaped '{' that is
// not the first half of a doubled brace.
func fromFirstObject(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		if i > 0 && text[i-1] == '\\' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			return "", false
		}
		span := text[i:end]
		if strings.Count(span, "{") != strings.Count(span, "}") || isDoubled(span) {
			return "", false
		}
		return span, true
	}
	return "", false
}

func fromInlinePair(text string) (string, bool) {
	if s := inlinePairRe.FindString(text); s != "" {
		return s, true
	}
	return "", false
}

func fromBareText(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "{") && !isDoubled(t) {
		return t, true
	}
	return "", false
}

// matchBrace returns the index just past the brace that closes the one at
// text[start], or -1. Braces inside JSON strings are ignored.
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func isDoubled(s string) bool { return strings.HasPrefix(s, "{{") }
