package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/manike-backend/internal/platform/completion"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

const Greeting = "Hello! 👋 I'm so excited to meet you! I'm Manike, and I absolutely LOVE helping people " +
	"discover amazing destinations and create unforgettable adventures! ✨\n\n" +
	"Let's get started! First things first - what's your name? 😊"

const ServiceUnavailableMessage = "I'm really sorry, but it looks like I'm experiencing a service disruption " +
	"and I'm unable to process your request right now. 😔\n\n" +
	"Here's what you can do:\n" +
	"• **Try again in a few minutes** - this might be a temporary issue.\n" +
	"• **Contact our support team** at support@manike.ai or reach out to your system administrator for assistance.\n\n" +
	"I apologize for the inconvenience! We'll get this sorted out as soon as possible. 🙏"

const RetryMessage = "I'm so sorry, but I ran into a technical issue! Let me try that again. " +
	"Could you please repeat what you just said? 🙏"

const recentHistoryWindow = 10

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ReplyInput struct {
	Message      string
	UserName     string
	Requirements map[string]*string
	NextQuestion string
	HasQuestion  bool
	// HistoryLen counts transcript entries including the current user message.
	HistoryLen int
	History    []Message
}

type Responder struct {
	llm completion.Provider
	log *logger.Logger
}

func NewResponder(llm completion.Provider, log *logger.Logger) *Responder {
	return &Responder{llm: llm, log: log.With("module", "ResponseSynthesizer")}
}

func (r *Responder) Greeting() string { return Greeting }

// Reply picks the canned first-exchange reply, the transition branch while questions remain,
// or the contextual branch once everything is collected.
func (r *Responder) Reply(ctx context.Context, in ReplyInput) string {
	req := in.Requirements
	known := 0
	for _, v := range req {
		if v != nil {
			known++
		}
	}

	// The greeting plus the first user message.
	if in.UserName != "" && in.HistoryLen == 2 {
		dest := valueOr(req, FieldDestination, "a great destination")
		switch {
		case known >= 3 && !in.HasQuestion:
			return fmt.Sprintf("Wow, %s! 🎉 You've given me everything I need in one go - that's fantastic! "+
				"I can see you're heading to %s. Let me start crafting your perfect itinerary right away! ✨",
				in.UserName, valueOr(req, FieldDestination, "an amazing destination"))
		case known >= 3:
			return fmt.Sprintf("Wonderful to meet you, %s! 😊 Thank you for sharing so many details - "+
				"I can see you're planning an exciting trip to %s! I just need a bit more info:\n\n%s",
				in.UserName, dest, in.NextQuestion)
		case in.HasQuestion:
			return fmt.Sprintf("What a lovely name, %s! 😊 I'm thrilled to work with you! Now, let me ask you:\n\n%s",
				in.UserName, in.NextQuestion)
		default:
			return fmt.Sprintf("Great to meet you, %s! 😊 Let's plan your amazing trip!", in.UserName)
		}
	}

	collected := collectedSummary(req)
	summary := strings.Join(collected, "\n")
	if summary == "" {
		summary = "None yet"
	}
	name := in.UserName
	if name == "" {
		name = "Guest"
	}

	if !in.HasQuestion {
		text, err := r.generate(ctx, render(completionPrompt, promptInput{
			Message:       in.Message,
			UserName:      name,
			Collected:     summary,
			RecentHistory: recentHistory(in.History),
		}))
		if err != nil {
			return fmt.Sprintf("Perfect, %sI have everything I need for your trip to %s! 🎉 Let me put together your itinerary now! ✨",
				nameGreeting(in.UserName), valueOr(req, FieldDestination, "your destination"))
		}
		return text
	}

	text, err := r.generate(ctx, render(transitionPrompt, promptInput{
		Message:      in.Message,
		UserName:     name,
		Collected:    summary,
		NextQuestion: in.NextQuestion,
	}))
	if err == nil {
		return text
	}
	if len(collected) >= 3 {
		dest := valueOr(req, FieldDestination, "there")
		if in.UserName != "" {
			dest += ", " + in.UserName
		}
		return fmt.Sprintf("This is going to be an amazing trip to %s! 🌟 %s", dest, in.NextQuestion)
	}
	acks := []string{"That's wonderful", "Great", "Perfect"}
	ack := acks[in.HistoryLen%len(acks)]
	if in.UserName != "" {
		ack += ", " + in.UserName
	}
	return fmt.Sprintf("%s! %s", ack, in.NextQuestion)
}

func (r *Responder) generate(ctx context.Context, prompt string) (string, error) {
	if r.llm == nil {
		return "", completion.ErrNoProvider
	}
	text, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		r.log.Warn("Reply generation failed", "error", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty reply")
	}
	return text, nil
}

func collectedSummary(req map[string]*string) []string {
	var out []string
	if v := req[FieldDestination]; v != nil {
		out = append(out, "Destination: "+*v)
	}
	if v := req[FieldStartDate]; v != nil {
		out = append(out, fmt.Sprintf("Dates: %s to %s", *v, valueOr(req, FieldEndDate, "TBD")))
	}
	if v := req[FieldTravelers]; v != nil {
		out = append(out, fmt.Sprintf("Travelers: %s people", *v))
	}
	if v := req[FieldSpecialRequirements]; v != nil {
		out = append(out, "Special needs: "+*v)
	}
	return out
}

func recentHistory(history []Message) string {
	if len(history) > recentHistoryWindow {
		history = history[len(history)-recentHistoryWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, strings.ToUpper(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func valueOr(req map[string]*string, field, def string) string {
	if v := req[field]; v != nil && *v != "" {
		return *v
	}
	return def
}

func nameGreeting(name string) string {
	if name == "" {
		return ""
	}
	return name + ", "
}
