package application

import (
	"encoding/json"
	"regexp"
	"strings"

	"voice-butler/internal/domain"
)

var (
	thinkBlockRE = regexp.MustCompile(`(?s)<think>.*?</think>`)
	jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)
)

func cleanModelReply(raw string) string {
	s := thinkBlockRE.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "</think>", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseModelReply tries a strict decode of the whole reply first, then the
// outermost brace-delimited substring. A reply without braces is treated as
// plain conversational text.
func parseModelReply(raw string) (domain.Decision, error) {
	cleaned := cleanModelReply(raw)

	if d, err := domain.ParseDecisionStrict([]byte(cleaned)); err == nil {
		d.Source = domain.SourceModel
		return d, nil
	}

	obj := jsonObjectRE.FindString(cleaned)
	if obj == "" {
		return domain.Decision{Reply: cleaned, Source: domain.SourceText}, nil
	}

	var d domain.Decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return domain.Decision{}, &domain.MalformedResponseError{Raw: raw, Err: err}
	}
	d.Source = domain.SourceModel
	return d, nil
}
