package itinerary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/bytedance/sonic"

	"github.com/yungbote/manike-backend/internal/platform/completion"
	"github.com/yungbote/manike-backend/internal/platform/llmjson"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

var (
	// ErrEmptyPlan means the model answered but produced no day data.
	ErrEmptyPlan = errors.New("itinerary plan has no days")
	// ErrPlanUnavailable means the model could not be reached or its output was unreadable.
	ErrPlanUnavailable = errors.New("itinerary plan unavailable")
)

// Number decodes a JSON number or a numeric string such as "2", "1,500" or "$40".
// Null and strings without digits decode to zero.
type Number float64

var numericText = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	text := string(b)
	if b[0] == '"' {
		var s string
		if err := sonic.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("number: %w", err)
		}
		text = numericText.FindString(s)
		if text == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	if err != nil {
		return fmt.Errorf("number %s: %w", b, err)
	}
	*n = Number(f)
	return nil
}

// Count is a Number truncated to a whole value.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	var n Number
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

type Coordinates struct {
	Latitude  Number `json:"latitude"`
	Longitude Number `json:"longitude"`
}

type PlanActivity struct {
	ID            string       `json:"id,omitempty"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Location      string       `json:"location,omitempty"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	Cost          Number       `json:"cost,omitempty"`
	Currency      string       `json:"currency,omitempty"`
	DurationHours Number       `json:"duration_hours,omitempty"`
	Category      string       `json:"category,omitempty"`
	Keywords      string       `json:"keywords,omitempty"`
}

type PlanStay struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name"`
	Location     string       `json:"location,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	CheckIn      string       `json:"check_in_date,omitempty"`
	CheckOut     string       `json:"check_out_date,omitempty"`
	CostPerNight Number       `json:"cost_per_night,omitempty"`
	Currency     string       `json:"currency,omitempty"`
	TotalCost    Number       `json:"total_cost,omitempty"`
	Category     string       `json:"category,omitempty"`
	Amenities    []string     `json:"amenities,omitempty"`
}

type PlanRide struct {
	ID              string       `json:"id,omitempty"`
	From            string       `json:"from_location"`
	To              string       `json:"to_location"`
	FromCoordinates *Coordinates `json:"from_coordinates,omitempty"`
	ToCoordinates   *Coordinates `json:"to_coordinates,omitempty"`
	Transport       string       `json:"transportation_type,omitempty"`
	Cost            Number       `json:"cost,omitempty"`
	Currency        string       `json:"currency,omitempty"`
	DurationHours   Number       `json:"duration_hours,omitempty"`
	Departure       string       `json:"departure_time,omitempty"`
	Arrival         string       `json:"arrival_time,omitempty"`
}

type PlanDay struct {
	Day        Count          `json:"day"`
	Date       string         `json:"date,omitempty"`
	Activities []PlanActivity `json:"activities"`
	Stays      []PlanStay     `json:"stays,omitempty"`
	Rides      []PlanRide     `json:"rides,omitempty"`
}

// Plan is the rich itinerary returned by the model and stored verbatim on the itinerary row.
type Plan struct {
	UserEmail           string    `json:"user_email,omitempty"`
	Destination         string    `json:"destination"`
	StartDate           string    `json:"start_date,omitempty"`
	EndDate             string    `json:"end_date,omitempty"`
	DurationDays        Count     `json:"duration_days,omitempty"`
	Budget              *Number   `json:"budget"`
	Currency            string    `json:"currency,omitempty"`
	Travelers           Count     `json:"travelers,omitempty"`
	Preferences         string    `json:"preferences,omitempty"`
	Accommodations      string    `json:"accommodations,omitempty"`
	SpecialRequirements *string   `json:"special_requirements"`
	Days                []PlanDay `json:"days"`
}

// PlannedActivity is one activity flattened out of a plan or the rule-based catalog.
type PlannedActivity struct {
	Day         int
	Title       string
	Location    string
	Keywords    string
	Description string
	Category    string
}

// Query is the text used for media matching.
func (a PlannedActivity) Query() string {
	return strings.TrimSpace(a.Title + " " + a.Keywords)
}

// Flatten lists activities in day order. Missing keywords are built from title, location,
// category and the start of the description.
func (p *Plan) Flatten() []PlannedActivity {
	if p == nil {
		return nil
	}
	var out []PlannedActivity
	for i, d := range p.Days {
		day := int(d.Day)
		if day <= 0 {
			day = i + 1
		}
		for _, a := range d.Activities {
			title := strings.TrimSpace(a.Title)
			if title == "" {
				title = "Activity"
			}
			kw := strings.TrimSpace(a.Keywords)
			if kw == "" {
				var parts []string
				for _, s := range []string{a.Title, a.Location, a.Category, truncateRunes(a.Description, 50)} {
					if s = strings.TrimSpace(s); s != "" {
						parts = append(parts, s)
					}
				}
				kw = strings.Join(parts, ",")
			}
			out = append(out, PlannedActivity{
				Day:         day,
				Title:       title,
				Location:    strings.TrimSpace(a.Location),
				Keywords:    kw,
				Description: a.Description,
				Category:    a.Category,
			})
		}
	}
	return out
}

func (p *Plan) dayCount() int {
	if p.DurationDays > 0 {
		return int(p.DurationDays)
	}
	return len(p.Days)
}

var planPrompt = template.Must(template.New("plan").Option("missingkey=zero").Parse(`Generate a complete, detailed travel itinerary in JSON format.

IMPORTANT: The response MUST be valid, complete JSON with NO markdown formatting and NO truncation.

Conversation Summary (extract all travel details from this):
{{.Summary}}

User Email: {{.Email}}

Required JSON format:
{
  "user_email": "{{.Email}}",
  "destination": "string",
  "start_date": "YYYY-MM-DD",
  "end_date": "YYYY-MM-DD",
  "duration_days": number,
  "budget": number or null,
  "currency": "USD",
  "travelers": number,
  "preferences": "string describing travel style",
  "accommodations": "string describing accommodation preferences",
  "special_requirements": "string or null",
  "days": [
    {
      "day": 1,
      "date": "YYYY-MM-DD",
      "activities": [
        {
          "id": "act_1_1",
          "title": "Activity name",
          "description": "Detailed description of the activity",
          "location": "Specific location name",
          "coordinates": {"latitude": 0.0, "longitude": 0.0},
          "cost": 0,
          "currency": "USD",
          "duration_hours": 2.0,
          "category": "cultural|adventure|nature|food|relaxation|heritage",
          "keywords": "comma,separated,keywords,for,semantic,search"
        }
      ],
      "stays": [
        {
          "id": "stay_1",
          "name": "Hotel name",
          "location": "Location",
          "coordinates": {"latitude": 0.0, "longitude": 0.0},
          "check_in_date": "YYYY-MM-DD",
          "check_out_date": "YYYY-MM-DD",
          "cost_per_night": 0,
          "currency": "USD",
          "total_cost": 0,
          "category": "hotel|hostel|resort|airbnb",
          "amenities": ["wifi", "breakfast", "pool"]
        }
      ],
      "rides": [
        {
          "id": "ride_1",
          "from_location": "Origin",
          "to_location": "Destination",
          "from_coordinates": {"latitude": 0.0, "longitude": 0.0},
          "to_coordinates": {"latitude": 0.0, "longitude": 0.0},
          "transportation_type": "flight|train|car|bus|tuk-tuk|ferry",
          "cost": 0,
          "currency": "USD",
          "duration_hours": 1.0,
          "departure_time": "HH:MM",
          "arrival_time": "HH:MM"
        }
      ]
    }
  ]
}

Instructions:
1. Return ONLY raw JSON, no markdown code blocks
2. Include all required closing braces and brackets
3. Ensure all coordinates have both latitude and longitude values
4. Create 2-4 realistic activities per day based on the conversation details
5. Include realistic stays for each night
6. Include rides/transportation between locations when applicable
7. Use reasonable cost estimates based on the user's budget
8. Make activities relevant to the user's stated preferences
9. Each activity MUST have a "keywords" field with 4-8 relevant comma-separated keywords for image/video matching
10. Ensure the itinerary respects any special requirements mentioned`))

// Planner asks the completion provider for a rich plan.
type Planner struct {
	llm completion.Provider
	log *logger.Logger
}

func NewPlanner(llm completion.Provider, log *logger.Logger) *Planner {
	return &Planner{llm: llm, log: log.With("module", "ItineraryPlanner")}
}

// Plan returns the parsed plan and the normalized JSON to persist.
func (p *Planner) Plan(ctx context.Context, summary, email string) (*Plan, []byte, error) {
	if p.llm == nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPlanUnavailable, completion.ErrNoProvider)
	}
	var buf bytes.Buffer
	if err := planPrompt.Execute(&buf, map[string]string{"Summary": summary, "Email": email}); err != nil {
		return nil, nil, err
	}
	text, err := p.llm.Generate(ctx, buf.String())
	if err != nil {
		p.log.Warn("Plan generation failed", "error", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrPlanUnavailable, err)
	}
	return p.parse(text)
}

func (p *Plan) normalize() {
	for i := range p.Days {
		if p.Days[i].Day <= 0 {
			p.Days[i].Day = Count(i + 1)
		}
	}
}

func (p *Planner) parse(text string) (*Plan, []byte, error) {
	obj, repaired := llmjson.ExtractObject(text)
	if obj == "" {
		return nil, nil, fmt.Errorf("%w: %v", ErrPlanUnavailable, llmjson.ErrNoJSON)
	}
	if repaired {
		p.log.Warn("Plan output was truncated, closed open brackets", "chars", len(text))
	}
	var plan Plan
	if err := sonic.UnmarshalString(obj, &plan); err != nil {
		return nil, nil, fmt.Errorf("%w: decode plan: %v", ErrPlanUnavailable, err)
	}
	plan.normalize()
	if len(plan.Days) == 0 || len(plan.Flatten()) == 0 {
		return nil, nil, ErrEmptyPlan
	}
	raw, err := sonic.ConfigStd.Marshal(&plan)
	if err != nil {
		return nil, nil, err
	}
	return &plan, raw, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
