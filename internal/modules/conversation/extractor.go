package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/yungbote/manike-backend/internal/platform/completion"
	"github.com/yungbote/manike-backend/internal/platform/llmjson"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// Extraction is the outcome of one extractor call. Values always covers every field;
// on failure it is an unchanged copy of the input.
type Extraction struct {
	Values       map[string]*string
	Replaced     []string
	TripDuration int
	Transient    bool
	Err          error
}

type Extractor struct {
	llm completion.Provider
	log *logger.Logger
}

func NewExtractor(llm completion.Provider, log *logger.Logger) *Extractor {
	return &Extractor{llm: llm, log: log.With("module", "FieldExtractor")}
}

var contradictionCue = regexp.MustCompile(`\b(forget|instead|rather than|scratch|no longer|not going to|change of plans?|cancel)\b`)

// ExtractName returns the user's name when the message states one. Failures return "".
func (e *Extractor) ExtractName(ctx context.Context, message string) string {
	if e == nil || e.llm == nil || strings.TrimSpace(message) == "" {
		return ""
	}
	text, err := e.llm.Generate(ctx, render(namePrompt, promptInput{Message: message}))
	if err != nil {
		e.log.Warn("Name extraction failed", "error", err)
		return ""
	}
	var out struct {
		Name *string `json:"name"`
	}
	if err := llmjson.Decode(text, &out); err != nil || out.Name == nil {
		return ""
	}
	name := strings.TrimSpace(*out.Name)
	if strings.EqualFold(name, "null") {
		return ""
	}
	return name
}

// Extract merges the fields mentioned in message into current. It never returns an error;
// provider or parse failures come back as Transient with the input unchanged.
func (e *Extractor) Extract(ctx context.Context, message string, current map[string]*string) Extraction {
	out := Extraction{Values: copyMapping(current)}
	if d, ok := ExtractTripDuration(message); ok {
		out.TripDuration = d
	}
	if e == nil || e.llm == nil {
		out.Transient = true
		out.Err = completion.ErrNoProvider
		return out
	}

	currentJSON, _ := sonic.ConfigStd.MarshalIndent(copyMapping(current), "", "  ")
	prompt := render(extractionPrompt, promptInput{
		Message:     message,
		CurrentJSON: string(currentJSON),
		FieldsList:  fieldsList(),
		Keys:        strings.Join(FieldNames, ", "),
	})

	text, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		e.log.Warn("Field extraction failed", "error", err, "rate_limited", completion.IsRateLimited(err))
		out.Transient = true
		out.Err = err
		return out
	}
	if strings.TrimSpace(text) == "" {
		e.log.Warn("Field extraction returned empty output")
		out.Transient = true
		out.Err = llmjson.ErrNoJSON
		return out
	}

	var raw map[string]any
	if err := llmjson.Decode(text, &raw); err != nil {
		e.log.Warn("Field extraction output unparsable", "error", err)
		out.Transient = true
		out.Err = err
		return out
	}

	out.Values, out.Replaced = applyExtraction(message, current, raw)

	// Duration backfills end_date only when this turn produced a start date and no end date.
	if out.TripDuration > 0 {
		if start := out.Values[FieldStartDate]; start != nil {
			if _, mentioned := scalarString(raw[FieldEndDate]); !mentioned {
				if end, ok := EndDateFromDuration(*start, out.TripDuration); ok {
					out.Values[FieldEndDate] = &end
				}
			}
		}
	}
	return out
}

// applyExtraction folds the model's mapping into current using the per-field merge/replace
// policy plus the deterministic cue rules.
func applyExtraction(message string, current map[string]*string, raw map[string]any) (map[string]*string, []string) {
	values := copyMapping(current)
	replaced := map[string]bool{}
	for _, f := range toStrings(raw["replaced"]) {
		if IsMergeField(f) {
			replaced[f] = true
		}
	}
	lower := strings.ToLower(message)

	for _, name := range FieldNames {
		v, present := raw[name]
		if !present {
			continue
		}
		var next string
		var ok bool
		switch name {
		case FieldTravelers:
			next, ok = NormalizeTravelers(v)
		case FieldBudget:
			next, ok = NormalizeBudget(v)
		case FieldEmail:
			next, ok = NormalizeEmail(v)
		default:
			next, ok = scalarString(v)
		}
		if !ok {
			continue
		}

		if !IsMergeField(name) {
			values[name] = &next
			continue
		}

		incoming := splitList(next)
		var prior []string
		if cur := current[name]; cur != nil {
			prior = splitList(*cur)
		}
		if !replaced[name] && len(prior) > 0 && dropsPrior(prior, incoming) {
			if kept := withoutContradicted(lower, prior); len(kept) < len(prior) {
				replaced[name] = true
				incoming = append(kept, incoming...)
			}
		}
		var merged []string
		if replaced[name] {
			merged = mergeList(incoming)
		} else {
			merged = mergeList(prior, incoming)
		}
		if len(merged) > 0 {
			joined := strings.Join(merged, ", ")
			values[name] = &joined
		}
	}

	if cues := InferSpecialRequirements(message); len(cues) > 0 {
		var existing []string
		if cur := values[FieldSpecialRequirements]; cur != nil {
			existing = splitList(*cur)
		}
		var add []string
		for _, c := range cues {
			if !coveredBy(c, existing) {
				add = append(add, c)
			}
		}
		if merged := mergeList(existing, add); len(merged) > 0 {
			joined := strings.Join(merged, ", ")
			values[FieldSpecialRequirements] = &joined
		}
	}

	var replacedList []string
	for _, name := range FieldNames {
		if replaced[name] {
			replacedList = append(replacedList, name)
		}
	}
	return values, replacedList
}

// cueWindow is how many words before a prior value a contradiction cue may appear.
const cueWindow = 4

// withoutContradicted drops the prior values the message explicitly retracts, as in
// "forget Sigiriya" or "instead of Galle". A cue elsewhere in the message does not count.
func withoutContradicted(lowerMsg string, prior []string) []string {
	kept := make([]string, 0, len(prior))
	for _, p := range prior {
		if !contradicted(lowerMsg, strings.ToLower(p)) {
			kept = append(kept, p)
		}
	}
	return kept
}

func contradicted(lowerMsg, item string) bool {
	if item == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(item) + `\b`)
	if err != nil {
		return false
	}
	for _, loc := range re.FindAllStringIndex(lowerMsg, -1) {
		words := strings.Fields(lowerMsg[:loc[0]])
		if len(words) > cueWindow {
			words = words[len(words)-cueWindow:]
		}
		if contradictionCue.MatchString(strings.Join(words, " ")) {
			return true
		}
	}
	return false
}

// dropsPrior reports whether incoming omits something already known.
func dropsPrior(prior, incoming []string) bool {
	in := map[string]bool{}
	for _, v := range incoming {
		in[strings.ToLower(v)] = true
	}
	for _, v := range prior {
		if !in[strings.ToLower(v)] {
			return true
		}
	}
	return false
}

func copyMapping(in map[string]*string) map[string]*string {
	out := make(map[string]*string, len(FieldNames))
	for _, name := range FieldNames {
		if v := in[name]; v != nil {
			vv := *v
			out[name] = &vv
		} else {
			out[name] = nil
		}
	}
	return out
}

func toStrings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return splitList(s)
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func fieldsList() string {
	var b strings.Builder
	for _, f := range Schema {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Prompt)
		b.WriteString("\n")
	}
	b.WriteString("- email: Email address, only if the user shares one")
	return b.String()
}
