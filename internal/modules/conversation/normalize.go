package conversation

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"solo": 1, "alone": 1, "couple": 2, "pair": 2,
}

var firstInt = regexp.MustCompile(`\d+`)

// NormalizeTravelers turns a model value into an integer string.
func NormalizeTravelers(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		if t >= 1 && t == math.Trunc(t) {
			return strconv.Itoa(int(t)), true
		}
		return "", false
	case int:
		if t >= 1 {
			return strconv.Itoa(t), true
		}
		return "", false
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return "", false
		}
		if m := firstInt.FindString(s); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n >= 1 {
				return strconv.Itoa(n), true
			}
		}
		if strings.Contains(s, "just me") {
			return "1", true
		}
		for _, w := range strings.FieldsFunc(s, func(r rune) bool { return r < 'a' || r > 'z' }) {
			if n, ok := wordNumbers[w]; ok {
				return strconv.Itoa(n), true
			}
		}
		return "", false
	default:
		return "", false
	}
}

var budgetAmount = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(k|thousand|m|million)?\b`)

// NormalizeBudget resolves shorthand ("3k" -> "3000", "$5,000" -> "5000"). Values without
// a number (e.g. "moderate") are kept as written.
func NormalizeBudget(v any) (string, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		if t <= 0 {
			return "", false
		}
		return strconv.Itoa(t), true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return "", false
		}
		m := budgetAmount.FindStringSubmatch(s)
		if m == nil {
			return strings.TrimSpace(t), true
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			return strings.TrimSpace(t), true
		}
		switch m[2] {
		case "k", "thousand":
			n *= 1000
		case "m", "million":
			n *= 1000000
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	default:
		return "", false
	}
}

// splitList splits a comma/"and" separated mention into trimmed parts.
func splitList(s string) []string {
	s = strings.ReplaceAll(s, ";", ",")
	s = strings.ReplaceAll(s, " & ", ",")
	s = strings.ReplaceAll(s, " and ", ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeList unions lists keeping first-mention order and dropping case-insensitive duplicates.
func mergeList(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, v := range l {
			k := strings.ToLower(strings.TrimSpace(v))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

type requirementCue struct {
	re  *regexp.Regexp
	key string
	tag string
}

var specialCues = []requirementCue{
	{regexp.MustCompile(`\b(wheelchairs?|elderly|mobility)\b`), "wheelchair", "wheelchair accessible"},
	{regexp.MustCompile(`\b(kids?|children|child|toddlers?)\b`), "family", "family-friendly"},
	{regexp.MustCompile(`\b(baby|babies|infants?)\b`), "baby", "baby-friendly"},
	{regexp.MustCompile(`\bvegetarian\b`), "vegetarian", "vegetarian food options"},
	{regexp.MustCompile(`\bvegan\b`), "vegan", "vegan food options"},
	{regexp.MustCompile(`\bhalal\b`), "halal", "halal food available"},
	{regexp.MustCompile(`\bgluten\b`), "gluten", "gluten-free food options"},
	{regexp.MustCompile(`\b(pets?|dogs?)\b`), "pet", "pet-friendly"},
}

// InferSpecialRequirements maps contextual cues in the message to requirement tags.
func InferSpecialRequirements(message string) []string {
	lower := strings.ToLower(message)
	var out []string
	for _, c := range specialCues {
		if c.re.MatchString(lower) {
			out = append(out, c.tag)
		}
	}
	return out
}

// coveredBy reports whether the cue behind tag is already expressed by one of the parts,
// so "gluten-free food options" does not duplicate "gluten free meals".
func coveredBy(tag string, parts []string) bool {
	var cue *requirementCue
	for i := range specialCues {
		if specialCues[i].tag == tag {
			cue = &specialCues[i]
			break
		}
	}
	for _, p := range parts {
		lp := strings.ToLower(p)
		if cue == nil {
			if lp == strings.ToLower(tag) {
				return true
			}
			continue
		}
		if cue.re.MatchString(lp) || slices.Contains(wordsOf(lp), cue.key) {
			return true
		}
	}
	return false
}

var emailAddress = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)

// NormalizeEmail keeps the first address-shaped token of the value.
func NormalizeEmail(v any) (string, bool) {
	s, ok := scalarString(v)
	if !ok {
		return "", false
	}
	m := emailAddress.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.ToLower(m), true
}

func wordsOf(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := scalarString(e); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		return "", false
	}
}
