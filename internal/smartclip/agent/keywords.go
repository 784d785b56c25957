package agent

import (
	"regexp"
	"strings"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/intent"
)

var (
	exitPattern = regexp.MustCompile(`(?i)(退出|再见|拜拜|\bexit\b|\bquit\b|\bbye\b)`)
	helpPattern = regexp.MustCompile(`(?i)(帮助|怎么用|使用说明|能做什么|\bhelp\b|^\s*[?？]\s*$)`)
)

// Degrade classifies text without the remote agent. Only exit and help
// requests are recognised; everything else is UNKNOWN.
func Degrade(text string) intent.Record {
	t := strings.TrimSpace(text)
	switch {
	case exitPattern.MatchString(t):
		return intent.Record{Intent: intent.Exit}
	case helpPattern.MatchString(t):
		return intent.Record{Intent: intent.Help}
	}
	return intent.UnknownRecord()
}
