package conversation

import "testing"

func completeState() *State {
	s := NewState()
	s.Set(FieldDestination, "Galle")
	s.Set(FieldStartDate, "2025-04-15")
	s.Set(FieldEndDate, "2025-04-19")
	s.Set(FieldTravelers, "2")
	return s
}

func TestIsCompleteIgnoresOptionalFields(t *testing.T) {
	tests := []struct {
		name     string
		optional map[string]string
	}{
		{name: "no optional", optional: nil},
		{name: "language only", optional: map[string]string{FieldLanguage: "English"}},
		{name: "budget and special", optional: map[string]string{FieldBudget: "3000", FieldSpecialRequirements: "vegan food options"}},
	}
	for _, tt := range tests {
		s := completeState()
		for k, v := range tt.optional {
			s.Set(k, v)
		}
		if !s.IsComplete() {
			t.Fatalf("%s: IsComplete want=true got=false", tt.name)
		}
	}

	s := NewState()
	s.Set(FieldDestination, "Galle")
	if s.IsComplete() {
		t.Fatalf("partial: IsComplete want=false got=true")
	}
}

func TestNextQuestionSkipsAnsweredFields(t *testing.T) {
	s := NewState()
	for _, f := range Schema {
		s.MarkAnswered(f.Name)
		q, ok := s.NextQuestion()
		if !ok {
			continue
		}
		if s.IsAnswered(q.Name) {
			t.Fatalf("after answering %s: NextQuestion returned answered field %s", f.Name, q.Name)
		}
	}
	if q, ok := s.NextQuestion(); ok {
		t.Fatalf("all answered: want no question got=%s", q.Name)
	}
}

func TestNextQuestionOffersOptionalOnce(t *testing.T) {
	s := NewState()
	q, ok := s.NextQuestion()
	if !ok || q.Name != FieldLanguage {
		t.Fatalf("first question: want=%s got=%s", FieldLanguage, q.Name)
	}
	s.Ask(q.Name)
	if q, _ := s.NextQuestion(); q.Name != FieldLanguage {
		t.Fatalf("pending optional: want=%s got=%s", FieldLanguage, q.Name)
	}
	s.ClearPending()
	if q, _ := s.NextQuestion(); q.Name != FieldDestination {
		t.Fatalf("after offer: want=%s got=%s", FieldDestination, q.Name)
	}

	// A required field keeps being asked until it has a value.
	s.Ask(FieldDestination)
	s.ClearPending()
	if q, _ := s.NextQuestion(); q.Name != FieldDestination {
		t.Fatalf("required re-ask: want=%s got=%s", FieldDestination, q.Name)
	}
}

func TestEndDateDerivedFromDuration(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		duration int
		wantEnd  string
		wantSet  bool
	}{
		{name: "five days", start: "2025-04-15", duration: 5, wantEnd: "2025-04-19", wantSet: true},
		{name: "single day", start: "2025-04-15", duration: 1, wantEnd: "2025-04-15", wantSet: true},
		{name: "month rollover", start: "2025-04-28", duration: 5, wantEnd: "2025-05-02", wantSet: true},
		{name: "no duration", start: "2025-04-15", duration: 0, wantSet: false},
		{name: "no start", start: "", duration: 5, wantSet: false},
		{name: "unparsable start", start: "mid April", duration: 5, wantSet: false},
	}
	for _, tt := range tests {
		s := NewState()
		s.Set(FieldDestination, "Ella")
		if tt.start != "" {
			s.Set(FieldStartDate, tt.start)
		}
		s.SetTripDuration(tt.duration)
		q, _ := s.NextQuestion()

		got, ok := s.Value(FieldEndDate)
		if ok != tt.wantSet {
			t.Fatalf("%s: end_date set want=%v got=%v (%q)", tt.name, tt.wantSet, ok, got)
		}
		if !tt.wantSet {
			continue
		}
		if got != tt.wantEnd {
			t.Fatalf("%s: end_date want=%s got=%s", tt.name, tt.wantEnd, got)
		}
		if !s.IsAnswered(FieldEndDate) {
			t.Fatalf("%s: derived end_date not marked answered", tt.name)
		}
		if q.Name == FieldEndDate {
			t.Fatalf("%s: end_date asked after derivation", tt.name)
		}
	}
}

func TestEndDateDerivationRunsOnEveryEvaluation(t *testing.T) {
	s := NewState()
	s.SetTripDuration(5)
	s.NextQuestion()
	if _, ok := s.Value(FieldEndDate); ok {
		t.Fatalf("derived without start date")
	}
	s.Set(FieldStartDate, "2025-04-15")
	s.NextQuestion()
	if got, _ := s.Value(FieldEndDate); got != "2025-04-19" {
		t.Fatalf("end_date: want=2025-04-19 got=%s", got)
	}
}

func TestReadyToGenerateRequiresNoOpenQuestion(t *testing.T) {
	s := completeState()
	if !s.IsComplete() {
		t.Fatalf("IsComplete want=true")
	}
	if _, open := s.NextQuestion(); !open {
		t.Fatalf("expected an open question")
	}
	if s.IsReadyToGenerate() {
		t.Fatalf("IsReadyToGenerate want=false while a question is open")
	}
	for _, f := range Schema {
		s.MarkAnswered(f.Name)
	}
	if !s.IsReadyToGenerate() {
		t.Fatalf("IsReadyToGenerate want=true after every field closed")
	}
}

func TestSetNeverClearsValue(t *testing.T) {
	s := NewState()
	s.Set(FieldTravelers, "3")
	if changed := s.Set(FieldTravelers, "  "); changed {
		t.Fatalf("blank update reported a change")
	}
	if got, _ := s.Value(FieldTravelers); got != "3" {
		t.Fatalf("travelers: want=3 got=%s", got)
	}
	if changed := s.Set("email", "a@b.c"); changed {
		t.Fatalf("unknown field accepted")
	}
}

func TestDecodeSnapshotAcceptsBareMapping(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"destination":"Kandy","travelers":3,"budget":null}`))
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if v := snap.Requirements[FieldDestination]; v == nil || *v != "Kandy" {
		t.Fatalf("destination: want=Kandy got=%v", v)
	}
	if v := snap.Requirements[FieldTravelers]; v == nil || *v != "3" {
		t.Fatalf("travelers: want=3 got=%v", v)
	}
	if v := snap.Requirements[FieldBudget]; v != nil {
		t.Fatalf("budget: want=nil got=%s", *v)
	}
}
