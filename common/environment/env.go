// Package environment reads SmartClip settings from the process environment.
//
// Every helper returns the parsed value or a fallback. Nothing here exits the
// process; callers decide what a missing value means.
package environment

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StringOr returns the variable's value, or fallback when it is unset or empty.
func StringOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

// FirstOf returns the value of the first non-empty variable among names.
func FirstOf(fallback string, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return fallback
}

// Credential returns the variable's value unless it is empty or equals one of
// the placeholder strings shipped in sample configuration files. The boolean
// reports whether a usable value was found.
func Credential(name string, placeholders ...string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", false
	}
	for _, p := range placeholders {
		if v == p {
			return "", false
		}
	}
	return v, true
}

// RequiredString returns the variable's value or an error when it is unset.
func RequiredString(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("environment variable %s is required", name)
	}
	return v, nil
}

// IntOr parses a decimal integer. Unparseable values yield fallback.
func IntOr(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

// DurationOr parses a time.Duration such as "30s" or "1h".
// A bare integer is read as seconds.
func DurationOr(name string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// StringSliceOr splits a comma-separated list, dropping blank entries.
func StringSliceOr(name string, fallback []string) []string {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
