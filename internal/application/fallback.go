package application

import (
	"strings"

	"voice-butler/internal/domain"
)

// Fallback scans rules in order and returns the first keyword match. Within a
// rule, on-keywords are checked before off-keywords.
func Fallback(rules []domain.ClassificationRule, text string) (domain.Decision, bool) {
	lower := strings.ToLower(text)

	for _, rule := range rules {
		if len(rule.Keywords) > 0 && !containsAny(lower, rule.Keywords) {
			continue
		}

		switch {
		case containsAny(lower, rule.OnKeywords):
			return domain.Decision{
				Device: strings.ToLower(rule.Device),
				Action: domain.ActionOn,
				Reply:  rule.OnReply,
				Source: domain.SourceFallback,
			}, true
		case containsAny(lower, rule.OffKeywords):
			return domain.Decision{
				Device: strings.ToLower(rule.Device),
				Action: domain.ActionOff,
				Reply:  rule.OffReply,
				Source: domain.SourceFallback,
			}, true
		}
	}

	return domain.Decision{}, false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && containsKeyword(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// containsKeyword matches ASCII words only on word boundaries, so "on" does
// not hit "front" or "don't". Other keywords match as substrings.
func containsKeyword(text, kw string) bool {
	if !isASCIIWord(kw) {
		return strings.Contains(text, kw)
	}

	for start := 0; start <= len(text)-len(kw); {
		i := strings.Index(text[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(kw)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = i + 1
	}
	return false
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isWordByte(s[i]) {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '\''
}
