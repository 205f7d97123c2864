package conversation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// State is the per-session requirements record. It owns the answered/auto-derive
// rules so callers never touch the underlying maps directly.
type State struct {
	values       map[string]string
	answered     map[string]struct{}
	asked        map[string]struct{}
	pending      string
	tripDuration int
}

func NewState() *State {
	return &State{
		values:   map[string]string{},
		answered: map[string]struct{}{},
		asked:    map[string]struct{}{},
	}
}

// Value returns the field value and whether one is set.
func (s *State) Value(field string) (string, bool) {
	v, ok := s.values[field]
	return v, ok && v != ""
}

// Set records an explicit update. Empty values are ignored so an update can never null a field.
// It reports whether the stored value changed.
func (s *State) Set(field, value string) bool {
	if !isKnownField(field) {
		return false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	prev, had := s.values[field]
	s.values[field] = value
	s.answered[field] = struct{}{}
	return !had || prev != value
}

// MarkAnswered closes a field without a value (skipped optional question).
func (s *State) MarkAnswered(field string) {
	if isKnownField(field) {
		s.answered[field] = struct{}{}
	}
}

func (s *State) IsAnswered(field string) bool {
	_, ok := s.answered[field]
	return ok
}

func (s *State) MarkAsked(field string) { s.asked[field] = struct{}{} }

func (s *State) WasAsked(field string) bool {
	_, ok := s.asked[field]
	return ok
}

// Pending is the field whose question was posed last.
func (s *State) Pending() string { return s.pending }

// Ask records that the question for field is being posed now.
func (s *State) Ask(field string) {
	s.asked[field] = struct{}{}
	s.pending = field
}

func (s *State) ClearPending() { s.pending = "" }

func (s *State) SetTripDuration(days int) {
	if days >= 1 && days <= maxTripDays {
		s.tripDuration = days
	}
}

func (s *State) TripDuration() int { return s.tripDuration }

// NextQuestion returns the first open field. Required fields stay open until they hold a
// value; optional fields are offered once and stay open only while their question is pending. The end date is derived from
// start date plus trip duration on every evaluation.
func (s *State) NextQuestion() (Field, bool) {
	s.deriveEndDate()
	for _, f := range Schema {
		if s.IsAnswered(f.Name) {
			continue
		}
		if _, ok := s.Value(f.Name); ok {
			continue
		}
		if f.Required {
			return f, true
		}
		if !s.WasAsked(f.Name) || s.pending == f.Name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *State) deriveEndDate() {
	if s.IsAnswered(FieldEndDate) || s.tripDuration <= 0 {
		return
	}
	if _, ok := s.Value(FieldEndDate); ok {
		return
	}
	start, ok := s.Value(FieldStartDate)
	if !ok {
		return
	}
	if end, ok := EndDateFromDuration(start, s.tripDuration); ok {
		s.Set(FieldEndDate, end)
	}
}

// IsComplete reports whether every completion field holds a value.
func (s *State) IsComplete() bool {
	for _, f := range CompletionFields {
		if _, ok := s.Value(f); !ok {
			return false
		}
	}
	return true
}

func (s *State) IsReadyToGenerate() bool {
	_, open := s.NextQuestion()
	return !open && s.IsComplete()
}

// Requirements returns the full mapping with nil for unset fields.
func (s *State) Requirements() map[string]*string {
	out := make(map[string]*string, len(FieldNames))
	for _, name := range FieldNames {
		if v, ok := s.Value(name); ok {
			vv := v
			out[name] = &vv
		} else {
			out[name] = nil
		}
	}
	return out
}

// Snapshot is the durable form of a State.
type Snapshot struct {
	Requirements map[string]*string `json:"requirements"`
	Answered     []string           `json:"answered,omitempty"`
	Asked        []string           `json:"asked,omitempty"`
	TripDuration int                `json:"trip_duration,omitempty"`
	Pending      string             `json:"pending,omitempty"`
	Dirty        bool               `json:"dirty_since_generation,omitempty"`
	Failures     int                `json:"consecutive_failures,omitempty"`
}

func (s *State) snapshot() Snapshot {
	return Snapshot{
		Requirements: s.Requirements(),
		Answered:     sortedKeys(s.answered),
		Asked:        sortedKeys(s.asked),
		TripDuration: s.tripDuration,
		Pending:      s.pending,
	}
}

// restore replays a snapshot through Set so restored values are marked answered.
func (s *State) restore(snap Snapshot) {
	for _, name := range FieldNames {
		if v := snap.Requirements[name]; v != nil {
			s.Set(name, *v)
		}
	}
	for _, name := range snap.Answered {
		s.MarkAnswered(name)
	}
	for _, name := range snap.Asked {
		if isKnownField(name) {
			s.MarkAsked(name)
		}
	}
	s.SetTripDuration(snap.TripDuration)
	if isKnownField(snap.Pending) {
		s.pending = snap.Pending
	}
}

func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return sonic.ConfigStd.Marshal(snap)
}

// DecodeSnapshot also accepts a bare requirements mapping.
func DecodeSnapshot(raw []byte) (Snapshot, error) {
	var snap Snapshot
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Snapshot{Requirements: map[string]*string{}}, nil
	}
	var decoded map[string]any
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	if _, ok := decoded["requirements"]; !ok {
		snap.Requirements = map[string]*string{}
		for k, v := range decoded {
			if str, ok := scalarString(v); ok {
				snap.Requirements[k] = &str
			}
		}
		return snap, nil
	}
	if err := sonic.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Requirements == nil {
		snap.Requirements = map[string]*string{}
	}
	return snap, nil
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
