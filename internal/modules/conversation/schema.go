package conversation

const (
	FieldName                = "name"
	FieldLanguage            = "language"
	FieldDestination         = "destination"
	FieldStartDate           = "start_date"
	FieldEndDate             = "end_date"
	FieldBudget              = "budget"
	FieldTravelers           = "travelers"
	FieldPreferences         = "preferences"
	FieldAccommodations      = "accommodations"
	FieldSpecialRequirements = "special_requirements"
	FieldEmail               = "email"
)

// Field is one question in the requirements conversation.
type Field struct {
	Name     string
	Prompt   string
	Required bool
}

// Schema is ordered by question precedence. The name field is captured by the
// greeting step and email is only picked up when offered; neither is asked.
var Schema = []Field{
	{
		Name:     FieldLanguage,
		Prompt:   "What language would you prefer for your itinerary? (e.g., English, Spanish, French, German, etc.)",
		Required: false,
	},
	{
		Name:     FieldDestination,
		Prompt:   "Where would you like to travel? (City, country, or region)",
		Required: true,
	},
	{
		Name:     FieldStartDate,
		Prompt:   "What is your travel start date? (Please use YYYY-MM-DD format)",
		Required: true,
	},
	{
		Name:     FieldEndDate,
		Prompt:   "What is your travel end date? (Please use YYYY-MM-DD format)",
		Required: true,
	},
	{
		Name:     FieldBudget,
		Prompt:   "What's your total budget for this trip? (You can skip this if you prefer)",
		Required: false,
	},
	{
		Name:     FieldTravelers,
		Prompt:   "How many people will be traveling? (Just the number, e.g., 1, 2, 3, etc.)",
		Required: true,
	},
	{
		Name:     FieldPreferences,
		Prompt:   "What type of experiences do you prefer? (e.g., adventure, relaxation, cultural, food, nightlife, history)",
		Required: true,
	},
	{
		Name:     FieldAccommodations,
		Prompt:   "Do you have any accommodation preferences? (e.g., luxury hotels, budget hostels, Airbnb, resorts)",
		Required: true,
	},
	{
		Name:     FieldSpecialRequirements,
		Prompt:   "Any special requirements or constraints? (e.g., vegetarian food, wheelchair accessible, family-friendly)",
		Required: false,
	},
}

// FieldNames lists every key of the requirements mapping, name first.
var FieldNames = []string{
	FieldName,
	FieldLanguage,
	FieldDestination,
	FieldStartDate,
	FieldEndDate,
	FieldBudget,
	FieldTravelers,
	FieldPreferences,
	FieldAccommodations,
	FieldSpecialRequirements,
	FieldEmail,
}

// CompletionFields must all hold a value before an itinerary can be generated.
var CompletionFields = []string{FieldDestination, FieldStartDate, FieldEndDate, FieldTravelers}

// Merge fields union new mentions with what is already known.
var mergeFields = map[string]bool{
	FieldDestination:         true,
	FieldPreferences:         true,
	FieldSpecialRequirements: true,
}

func IsMergeField(name string) bool { return mergeFields[name] }

func LookupField(name string) (Field, bool) {
	for _, f := range Schema {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func isKnownField(name string) bool {
	for _, n := range FieldNames {
		if n == name {
			return true
		}
	}
	return false
}
