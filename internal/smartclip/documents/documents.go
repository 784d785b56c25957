// Package documents stores the named text documents that chat commands edit.
// A document is an ordered list of lines; one title is marked active and is
// used when a command names no document.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultTitle names the document created for an empty store.
	DefaultTitle = "默认文档"
	defaultLine  = "这是您的默认文档，可以随时添加内容。"
)

// ErrEmptyTitle is returned when an operation needs a title and got none.
var ErrEmptyTitle = errors.New("documents: empty title")

// Store is the document collection used by the dispatcher.
type Store interface {
	// AddContent inserts content into title, creating the document if needed.
	// position is "start", "end", or text of the line to insert after.
	AddContent(ctx context.Context, title, content, position string) (Placement, error)
	// ClearDocument empties title. It reports false when title does not exist.
	ClearDocument(ctx context.Context, title string) (bool, error)
	// SetActiveDocument marks title active. It reports false when title does
	// not exist.
	SetActiveDocument(ctx context.Context, title string) (bool, error)
	Lines(ctx context.Context, title string) ([]string, bool, error)
	Titles(ctx context.Context) ([]string, error)
	ActiveTitle(ctx context.Context) (string, error)
	Close() error
}

// PlaceKind says where AddContent put the new lines.
type PlaceKind string

const (
	PlacedStart PlaceKind = "start"
	PlacedEnd   PlaceKind = "end"
	PlacedAfter PlaceKind = "after"
	// PlacedFallback means the anchor line was not found and the content
	// was appended instead.
	PlacedFallback PlaceKind = "fallback"
)

// Placement describes the result of AddContent.
type Placement struct {
	Kind    PlaceKind
	Anchor  string
	Added   int
	Created bool
}

// SplitContent breaks content into lines and drops leading and trailing
// blank lines. Blank lines in the middle are kept.
func SplitContent(content string) []string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Insert returns a new slice with content placed into lines according to
// position. lines is not modified.
func Insert(lines []string, content, position string) ([]string, Placement) {
	add := SplitContent(content)
	pos := strings.TrimSpace(position)
	if pos == "" {
		pos = "end"
	}
	p := Placement{Added: len(add)}

	out := make([]string, 0, len(lines)+len(add))
	switch lower := strings.ToLower(pos); lower {
	case "start":
		p.Kind = PlacedStart
		out = append(append(out, add...), lines...)
	case "end":
		p.Kind = PlacedEnd
		out = append(append(out, lines...), add...)
	default:
		p.Anchor = pos
		idx := -1
		for i, l := range lines {
			if strings.Contains(strings.ToLower(l), lower) {
				idx = i
				break
			}
		}
		if idx < 0 {
			p.Kind = PlacedFallback
			out = append(append(out, lines...), add...)
			break
		}
		p.Kind = PlacedAfter
		out = append(out, lines[:idx+1]...)
		out = append(out, add...)
		out = append(out, lines[idx+1:]...)
	}
	return out, p
}

// SafeTitle maps a title to a file-system friendly name: letters, digits,
// spaces, '-', '_' and parentheses (ASCII or full width) survive.
func SafeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_()（）", r) {
			b.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		return s
	}
	return "untitled"
}

// Display renders lines as a numbered listing for terminals.
func Display(title string, lines []string) string {
	if len(lines) == 0 {
		return fmt.Sprintf("文档 '%s' 为空。", title)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "--- 文档: %s ---\n", title)
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l)
	}
	b.WriteString("----------------------")
	return b.String()
}
