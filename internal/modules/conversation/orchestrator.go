package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/yungbote/manike-backend/internal/platform/logger"
)

const DefaultMaxConsecutiveFailures = 2

type Options struct {
	// MaxConsecutiveFailures is the number of failed extractions in a row that
	// trips the service-unavailable reply.
	MaxConsecutiveFailures int
}

// TurnResult is what one user message produced.
type TurnResult struct {
	Reply string `json:"response"`
	// Changes lists the fields whose value changed this turn.
	Changes []string `json:"changes,omitempty"`
	// Patch is the JSON merge patch from the previous requirements to the new ones.
	Patch              []byte `json:"-"`
	Transient          bool   `json:"-"`
	ServiceUnavailable bool   `json:"-"`
}

// Orchestrator drives the requirements conversation of a single session.
// It is not safe for concurrent use; SessionStore serializes turns per session.
type Orchestrator struct {
	state     *State
	extractor *Extractor
	responder *Responder
	log       *logger.Logger

	history     []Message
	userName    string
	failures    int
	dirty       bool
	maxFailures int
}

func NewOrchestrator(extractor *Extractor, responder *Responder, opts Options, log *logger.Logger) *Orchestrator {
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	return &Orchestrator{
		state:       NewState(),
		extractor:   extractor,
		responder:   responder,
		log:         log.With("module", "ConversationOrchestrator"),
		maxFailures: opts.MaxConsecutiveFailures,
	}
}

// Start appends the greeting as the first transcript entry and returns it.
func (o *Orchestrator) Start() string {
	g := o.responder.Greeting()
	o.history = append(o.history, Message{Role: "assistant", Content: g})
	return g
}

// Turn processes one user message end to end. It never returns an error; provider
// trouble degrades to a retry or the service-unavailable message.
func (o *Orchestrator) Turn(ctx context.Context, message string) TurnResult {
	message = strings.TrimSpace(message)
	o.history = append(o.history, Message{Role: "user", Content: message})

	if o.userName == "" {
		if name := o.extractor.ExtractName(ctx, message); name != "" {
			o.userName = name
			o.state.Set(FieldName, name)
		}
	}

	before := o.state.Requirements()
	ex := o.extractor.Extract(ctx, message, before)
	res := TurnResult{Transient: ex.Transient}
	if ex.Transient {
		o.failures++
		o.log.Warn("Extraction failed", "consecutive_failures", o.failures, "error", ex.Err)
		if o.failures >= o.maxFailures {
			res.ServiceUnavailable = true
			res.Reply = ServiceUnavailableMessage
			o.history = append(o.history, Message{Role: "assistant", Content: res.Reply})
			return res
		}
	} else {
		o.failures = 0
	}

	if ex.TripDuration > 0 {
		o.state.SetTripDuration(ex.TripDuration)
	}
	for _, name := range FieldNames {
		v := ex.Values[name]
		if v == nil {
			continue
		}
		if cur := before[name]; cur == nil || *cur != *v {
			o.state.Set(name, *v)
		}
	}
	if o.userName == "" {
		if v, ok := o.state.Value(FieldName); ok {
			o.userName = v
		}
	}

	if pending := o.state.Pending(); pending != "" {
		if f, ok := LookupField(pending); ok && !f.Required && !o.state.IsAnswered(pending) && IsSkipRequest(message) {
			o.state.MarkAnswered(pending)
		}
	}
	o.state.ClearPending()

	next, hasQuestion := o.state.NextQuestion()
	if hasQuestion {
		o.state.Ask(next.Name)
	}

	after := o.state.Requirements()
	res.Changes, res.Patch = diffRequirements(before, after)
	if len(res.Changes) > 0 {
		o.dirty = true
		o.log.Debug("Requirements changed", "fields", res.Changes)
	}

	res.Reply = o.responder.Reply(ctx, ReplyInput{
		Message:      message,
		UserName:     o.userName,
		Requirements: after,
		NextQuestion: next.Prompt,
		HasQuestion:  hasQuestion,
		HistoryLen:   len(o.history),
		History:      o.history,
	})
	o.history = append(o.history, Message{Role: "assistant", Content: res.Reply})
	return res
}

// diffRequirements returns changed field names and the merge patch between two mappings.
func diffRequirements(before, after map[string]*string) ([]string, []byte) {
	a, err := sonic.ConfigStd.Marshal(before)
	if err != nil {
		return nil, nil
	}
	b, err := sonic.ConfigStd.Marshal(after)
	if err != nil {
		return nil, nil
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, nil
	}
	var fields map[string]any
	if err := sonic.Unmarshal(patch, &fields); err != nil || len(fields) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, patch
}

func (o *Orchestrator) Requirements() map[string]*string { return o.state.Requirements() }

func (o *Orchestrator) History() []Message {
	out := make([]Message, len(o.history))
	copy(out, o.history)
	return out
}

func (o *Orchestrator) UserName() string { return o.userName }

func (o *Orchestrator) IsComplete() bool { return o.state.IsComplete() }

func (o *Orchestrator) IsReadyToGenerate() bool { return o.state.IsReadyToGenerate() }

// Dirty reports whether requirements changed since the last successful generation.
func (o *Orchestrator) Dirty() bool { return o.dirty }

// MarkGenerated clears the dirty flag after an itinerary was generated.
func (o *Orchestrator) MarkGenerated() { o.dirty = false }

func (o *Orchestrator) ConsecutiveFailures() int { return o.failures }

func (o *Orchestrator) Destination() string {
	v, _ := o.state.Value(FieldDestination)
	return v
}

// Summary renders the transcript as ROLE: content lines for itinerary generation.
func (o *Orchestrator) Summary() string {
	lines := make([]string, 0, len(o.history))
	for _, m := range o.history {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(m.Role), m.Content))
	}
	return strings.Join(lines, "\n")
}

func (o *Orchestrator) Snapshot() Snapshot {
	snap := o.state.snapshot()
	snap.Dirty = o.dirty
	snap.Failures = o.failures
	return snap
}

// Restore replays a persisted snapshot and transcript without calling the extractor.
func (o *Orchestrator) Restore(snap Snapshot, history []Message) {
	o.state = NewState()
	o.state.restore(snap)
	o.dirty = snap.Dirty
	o.failures = snap.Failures
	o.userName, _ = o.state.Value(FieldName)
	o.history = append(o.history[:0], history...)
}
