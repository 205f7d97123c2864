package conversation

import (
	"regexp"
	"strings"
)

var skipPhrase = regexp.MustCompile(`\b(skip|no thanks|pass|not needed|dont care|don't care|no preference|whatever|anything|nope|dont worry|don't worry)\b`)

var bareRefusals = map[string]bool{
	"no":   true,
	"nah":  true,
	"nope": true,
	"n":    true,
	"na":   true,
}

// IsSkipRequest reports whether the message declines the current question.
// Only ever applied to optional fields.
func IsSkipRequest(message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	lower = strings.ReplaceAll(lower, "’", "'")
	if lower == "" {
		return false
	}
	if bareRefusals[strings.Trim(lower, ".!? ")] {
		return true
	}
	return skipPhrase.MatchString(lower)
}
