package conversation

import (
	"strings"
	"text/template"
)

type promptInput struct {
	Message       string
	UserName      string
	CurrentJSON   string
	FieldsList    string
	Keys          string
	Collected     string
	NextQuestion  string
	RecentHistory string
}

func render(t *template.Template, in promptInput) string {
	var b strings.Builder
	if err := t.Execute(&b, in); err != nil {
		return ""
	}
	return strings.TrimSpace(b.String())
}

func mustPrompt(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=zero").Parse(text))
}

var namePrompt = mustPrompt("extract_name", `
Extract the person's name from this message.
User message: "{{.Message}}"

Return a JSON object with a "name" key. If a name is mentioned, return it. Otherwise return null.
Examples:
- User says "Hi, I'm John" -> {"name": "John"}
- User says "My name is Sarah" -> {"name": "Sarah"}
- User says "Hi there" -> {"name": null}

Return ONLY the JSON object, no other text.`)

var extractionPrompt = mustPrompt("extract_fields", `
You are a travel information extractor. Understand the user's intent and extract ALL relevant travel
information, even when it is expressed informally or indirectly.

User message: "{{.Message}}"

Current extracted data (already collected):
{{.CurrentJSON}}

Fields to extract:
{{.FieldsList}}

MERGING WITH EXISTING DATA
- destination, preferences, special_requirements MERGE: combine old and new, remove duplicates.
  Current "Sigiriya" + "I also want to visit Galle and Ella" -> "Sigiriya, Galle, Ella".
- start_date, end_date, travelers, budget, email, language, accommodations REPLACE: use the newest value.
- If the user contradicts a merge field ("forget Sigiriya, let's go to Kandy"), return only the new
  value and list the field name in "replaced".
- If the user does not mention a field, return its CURRENT value. Never return null for a field
  that already has a value.

RULES
- Dates: YYYY-MM-DD. Assume the upcoming occurrence of the date. "mid April" -> the 15th,
  "early May" -> the 5th, "late June" -> the 25th. "April 10-15" gives both dates.
- Travelers: always a number and always include the speaker unless explicitly excluded.
  "me and my wife" -> 2, "my two kids and father coming with me" -> 4, "family of 5" -> 5.
- Special requirements: infer from context. Wheelchair or elderly -> "wheelchair accessible",
  children -> "family-friendly", baby -> "baby-friendly", vegetarian/halal -> food constraint.
- Budget: a number. "around 3k" -> 3000, "$5,000" -> 5000. "cheap" or "luxury" is a preference.
- Language: "in Spanish" -> "Spanish".
- Email: any text with an @ that looks like an email address.

OUTPUT
Return a JSON object with exactly these keys: {{.Keys}}, replaced
"replaced" is an array of merge field names the user explicitly contradicted (usually empty).
Return ONLY valid JSON, no markdown, no explanation.`)

var completionPrompt = mustPrompt("complete_reply", `
You are Manike, a warm and knowledgeable travel planning assistant. The user has provided all of
their travel details and may be refining an itinerary that already exists.

User: {{.UserName}}
Trip summary:
{{.Collected}}

Conversation so far:
{{.RecentHistory}}

Their latest message: "{{.Message}}"

INSTRUCTIONS
- If the user asks a QUESTION (destination, activities, safety, tips), answer it helpfully.
- If the user requests CHANGES ("add a beach day", "swap the hotel"), acknowledge the change.
- Otherwise reply with a SHORT excited acknowledgment (2-3 sentences) and offer further help.
- NEVER tell the user to click a button or otherwise trigger itinerary generation.
- NEVER list a day-by-day schedule in your reply; the itinerary is shown elsewhere.
- NEVER mention downloading, exporting, refreshing, video compilation, background processing or waiting.
- Use their name naturally and add 1-2 relevant emojis. Keep it to 2-4 sentences.`)

var transitionPrompt = mustPrompt("transition_reply", `
You are Manike, a warm and intelligent travel planning assistant.

User: {{.UserName}}
Their message: "{{.Message}}"

Information collected so far:
{{.Collected}}

What I still need to ask: {{.NextQuestion}}

Write a SHORT, natural reply (2-3 sentences) that smoothly moves to the next question,
uses their name naturally and includes 1-2 emojis.

IMPORTANT
- Do NOT repeat back what they said or restate collected details.
- Do NOT ask them to confirm anything.
- Do NOT ask again for anything in the collected list.`)
