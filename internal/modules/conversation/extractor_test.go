package conversation

import (
	"context"
	"testing"

	"github.com/yungbote/manike-backend/internal/platform/logger"
)

func extractOnce(t *testing.T, reply scripted, message string, current map[string]*string) Extraction {
	t.Helper()
	p := &scriptedProvider{}
	p.push(reply)
	return NewExtractor(p, logger.Nop()).Extract(context.Background(), message, current)
}

func value(m map[string]*string, k string) string {
	if v := m[k]; v != nil {
		return *v
	}
	return "<nil>"
}

func TestExtractMergesDestinationAndInfersAccessibility(t *testing.T) {
	current := map[string]*string{FieldDestination: strPtr("Galle")}
	msg := "also Ella and Ambalangoda, and I need wheelchair access"

	tests := []struct {
		name  string
		model string
	}{
		{name: "model merged", model: `{"destination": "Galle, Ella, Ambalangoda", "special_requirements": null}`},
		{name: "model returned only new places", model: `{"destination": "Ella, Ambalangoda"}`},
		{name: "model inferred requirement", model: "```json\n{\"destination\": \"Galle, Ella and Ambalangoda\", \"special_requirements\": \"wheelchair accessible\"}\n```"},
	}
	for _, tt := range tests {
		ex := extractOnce(t, scripted{text: tt.model}, msg, current)
		if ex.Transient {
			t.Fatalf("%s: unexpected transient error %v", tt.name, ex.Err)
		}
		if got := value(ex.Values, FieldDestination); got != "Galle, Ella, Ambalangoda" {
			t.Fatalf("%s: destination want=%q got=%q", tt.name, "Galle, Ella, Ambalangoda", got)
		}
		if got := value(ex.Values, FieldSpecialRequirements); got != "wheelchair accessible" {
			t.Fatalf("%s: special_requirements want=%q got=%q", tt.name, "wheelchair accessible", got)
		}
	}
}

func TestExtractMergeIsOrderIndependent(t *testing.T) {
	start := map[string]*string{FieldDestination: strPtr("Galle")}

	step1 := extractOnce(t, scripted{text: `{"destination": "Ella"}`}, "Ella too", start)
	step2 := extractOnce(t, scripted{text: `{"destination": "ella, Ambalangoda"}`}, "and Ambalangoda", step1.Values)
	combined := extractOnce(t, scripted{text: `{"destination": "Ella, Ambalangoda"}`}, "Ella and Ambalangoda", start)

	if a, b := value(step2.Values, FieldDestination), value(combined.Values, FieldDestination); a != b {
		t.Fatalf("sequential vs combined: want=%q got=%q", b, a)
	}
}

func TestExtractReplaceFieldsTakeNewestValue(t *testing.T) {
	current := map[string]*string{
		FieldTravelers: strPtr("2"),
		FieldBudget:    strPtr("1000"),
		FieldStartDate: strPtr("2025-04-10"),
		FieldEmail:     strPtr("old@example.com"),
	}
	ex := extractOnce(t, scripted{text: `{"travelers": 4, "budget": "around 3k", "start_date": "2025-05-01", "email": "send it to Ana@Example.com"}`},
		"actually my two kids and father are coming with me, budget around 3k, starting May 1st, send it to Ana@Example.com", current)

	want := map[string]string{
		FieldTravelers: "4",
		FieldBudget:    "3000",
		FieldStartDate: "2025-05-01",
		FieldEmail:     "ana@example.com",
	}
	for k, w := range want {
		if got := value(ex.Values, k); got != w {
			t.Fatalf("%s: want=%q got=%q", k, w, got)
		}
	}
	if got := value(ex.Values, FieldSpecialRequirements); got != "family-friendly" {
		t.Fatalf("special_requirements: want=%q got=%q", "family-friendly", got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   any
		want string
		ok   bool
	}{
		{"ana@example.com", "ana@example.com", true},
		{"  mail me at Ana.Perera+trip@Mail.co.uk please", "ana.perera+trip@mail.co.uk", true},
		{"no address here", "", false},
		{"ana@localhost", "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeEmail(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("NormalizeEmail(%v): want=%q,%v got=%q,%v", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestExtractContradictionReplacesMergeField(t *testing.T) {
	current := map[string]*string{FieldDestination: strPtr("Sigiriya")}
	tests := []struct {
		name  string
		model string
	}{
		{name: "model flagged", model: `{"destination": "Kandy", "replaced": ["destination"]}`},
		{name: "message cue", model: `{"destination": "Kandy"}`},
	}
	for _, tt := range tests {
		ex := extractOnce(t, scripted{text: tt.model}, "Actually, forget Sigiriya, let's go to Kandy", current)
		if got := value(ex.Values, FieldDestination); got != "Kandy" {
			t.Fatalf("%s: destination want=Kandy got=%q", tt.name, got)
		}
		if len(ex.Replaced) != 1 || ex.Replaced[0] != FieldDestination {
			t.Fatalf("%s: replaced want=[destination] got=%v", tt.name, ex.Replaced)
		}
	}
}

func TestExtractContradictionCueMustTouchPriorValue(t *testing.T) {
	tests := []struct {
		name            string
		current         map[string]*string
		model           string
		msg             string
		wantDestination string
		wantReplaced    []string
	}{
		{
			name:            "cue about another field",
			current:         map[string]*string{FieldDestination: strPtr("Galle"), FieldAccommodations: strPtr("hotels")},
			model:           `{"destination": "Ella", "accommodations": "Airbnb"}`,
			msg:             "Add Ella too, and instead of hotels I'd like an Airbnb",
			wantDestination: "Galle, Ella",
		},
		{
			name:            "only the retracted place is dropped",
			current:         map[string]*string{FieldDestination: strPtr("Galle, Sigiriya")},
			model:           `{"destination": "Kandy"}`,
			msg:             "Forget Sigiriya and add Kandy",
			wantDestination: "Galle, Kandy",
			wantReplaced:    []string{FieldDestination},
		},
		{
			name:            "cue too far from the place",
			current:         map[string]*string{FieldDestination: strPtr("Galle")},
			model:           `{"destination": "Ella"}`,
			msg:             "Instead of waiting I would love to keep Galle and see Ella",
			wantDestination: "Galle, Ella",
		},
	}
	for _, tt := range tests {
		ex := extractOnce(t, scripted{text: tt.model}, tt.msg, tt.current)
		if got := value(ex.Values, FieldDestination); got != tt.wantDestination {
			t.Fatalf("%s: destination want=%q got=%q", tt.name, tt.wantDestination, got)
		}
		if len(ex.Replaced) != len(tt.wantReplaced) {
			t.Fatalf("%s: replaced want=%v got=%v", tt.name, tt.wantReplaced, ex.Replaced)
		}
	}
}

func TestExtractInferredRequirementNotDuplicated(t *testing.T) {
	tests := []struct {
		name    string
		current string
		msg     string
		want    string
	}{
		{"gluten phrased differently", "gluten free meals", "my partner is gluten intolerant", "gluten free meals"},
		{"family phrased differently", "family friendly stops", "travelling with the kids", "family friendly stops"},
		{"mobility already noted", "wheelchair accessible, mobility assistance", "dad uses a wheelchair", "wheelchair accessible, mobility assistance"},
		{"new cue still added", "gluten free meals", "we are vegan too", "gluten free meals, vegan food options"},
		{"unrelated word is not a cue key", "carpeted rooms", "bringing our dog", "carpeted rooms, pet-friendly"},
	}
	for _, tt := range tests {
		current := map[string]*string{FieldSpecialRequirements: strPtr(tt.current)}
		ex := extractOnce(t, scripted{text: `{}`}, tt.msg, current)
		if got := value(ex.Values, FieldSpecialRequirements); got != tt.want {
			t.Fatalf("%s: want=%q got=%q", tt.name, tt.want, got)
		}
	}
}

func TestExtractPreservesUnmentionedFields(t *testing.T) {
	current := map[string]*string{
		FieldDestination: strPtr("Mirissa"),
		FieldTravelers:   strPtr("2"),
	}
	ex := extractOnce(t, scripted{text: `{"destination": null, "travelers": null, "preferences": "beach"}`}, "we love the beach", current)
	if got := value(ex.Values, FieldDestination); got != "Mirissa" {
		t.Fatalf("destination: want=Mirissa got=%q", got)
	}
	if got := value(ex.Values, FieldTravelers); got != "2" {
		t.Fatalf("travelers: want=2 got=%q", got)
	}
	if got := value(ex.Values, FieldPreferences); got != "beach" {
		t.Fatalf("preferences: want=beach got=%q", got)
	}
}

func TestExtractFailureLeavesMappingUnchanged(t *testing.T) {
	current := map[string]*string{FieldDestination: strPtr("Kandy")}
	tests := []struct {
		name  string
		reply scripted
	}{
		{name: "provider error", reply: scripted{err: errProviderDown}},
		{name: "empty output", reply: scripted{text: "   "}},
		{name: "prose output", reply: scripted{text: "Sorry, I cannot help with that."}},
	}
	for _, tt := range tests {
		ex := extractOnce(t, tt.reply, "hello", current)
		if !ex.Transient {
			t.Fatalf("%s: Transient want=true", tt.name)
		}
		if got := value(ex.Values, FieldDestination); got != "Kandy" {
			t.Fatalf("%s: destination want=Kandy got=%q", tt.name, got)
		}
		for _, name := range FieldNames {
			if _, ok := ex.Values[name]; !ok {
				t.Fatalf("%s: mapping missing key %s", tt.name, name)
			}
		}
	}
}

func TestExtractBackfillsEndDateFromDuration(t *testing.T) {
	ex := extractOnce(t, scripted{text: `{"start_date": "2025-04-15", "end_date": null}`},
		"5 day trip starting 2025-04-15", map[string]*string{})
	if got := value(ex.Values, FieldEndDate); got != "2025-04-19" {
		t.Fatalf("end_date: want=2025-04-19 got=%q", got)
	}
	if ex.TripDuration != 5 {
		t.Fatalf("duration: want=5 got=%d", ex.TripDuration)
	}

	ex = extractOnce(t, scripted{text: `{"start_date": "2025-04-15", "end_date": "2025-04-22"}`},
		"5 day trip starting 2025-04-15 until the 22nd", map[string]*string{})
	if got := value(ex.Values, FieldEndDate); got != "2025-04-22" {
		t.Fatalf("explicit end_date: want=2025-04-22 got=%q", got)
	}
}
