package itinerary

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type CatalogEntry struct {
	Activity string `yaml:"activity"`
	Location string `yaml:"location"`
	Keywords string `yaml:"keywords"`
}

// Catalog maps a lowercase destination key to its known activities.
type Catalog struct {
	Destinations map[string][]CatalogEntry `yaml:"destinations"`
	Generic      []CatalogEntry            `yaml:"generic"`
	// Order fixes the precedence of destinations mentioned together. Keys missing
	// from it follow in alphabetical order.
	Order []string `yaml:"order"`
}

func (c Catalog) keys() []string {
	seen := make(map[string]bool, len(c.Destinations))
	out := make([]string, 0, len(c.Destinations))
	for _, k := range c.Order {
		if _, ok := c.Destinations[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	var rest []string
	for k := range c.Destinations {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func DefaultCatalog() Catalog {
	return Catalog{
		Order: []string{"colombo", "galle", "ella", "kandy", "mirissa", "sigiriya"},
		Destinations: map[string][]CatalogEntry{
			"colombo": {
				{"City walk through Colombo Fort and Pettah Market", "Colombo", "colombo,city,fort,market,pettah"},
				{"Visit Gangaramaya Temple and Beira Lake", "Colombo", "colombo,temple,lake,gangaramaya"},
				{"Explore Independence Square and National Museum", "Colombo", "colombo,museum,independence,history"},
			},
			"galle": {
				{"Walk through the historic Galle Fort", "Galle", "galle,fort,heritage,colonial,unesco"},
				{"Visit the Galle Lighthouse at sunset", "Galle", "galle,lighthouse,sunset,coast"},
				{"Explore Japanese Peace Pagoda", "Galle", "galle,pagoda,peace,temple"},
			},
			"ella": {
				{"Hike to Little Adam's Peak", "Ella", "ella,hiking,peak,mountain,nature"},
				{"Ride the famous Ella Train through tea plantations", "Ella", "ella,train,tea,plantation,scenic"},
				{"Visit Nine Arches Bridge", "Ella", "ella,bridge,nine,arches,railway"},
			},
			"kandy": {
				{"Visit the Temple of the Sacred Tooth Relic", "Kandy", "kandy,temple,tooth,relic,sacred"},
				{"Explore the Royal Botanical Gardens", "Kandy", "kandy,botanical,garden,nature,flowers"},
				{"Walk around Kandy Lake at sunset", "Kandy", "kandy,lake,sunset,walk"},
			},
			"mirissa": {
				{"Whale watching boat tour", "Mirissa", "mirissa,whale,ocean,boat,marine"},
				{"Relax at Mirissa Beach", "Mirissa", "mirissa,beach,sand,ocean,relax"},
				{"Visit Coconut Tree Hill for sunset views", "Mirissa", "mirissa,coconut,hill,sunset,palm"},
			},
			"sigiriya": {
				{"Climb Sigiriya Rock Fortress", "Sigiriya", "sigiriya,rock,fortress,climb,ancient"},
				{"Explore Pidurangala Rock at sunrise", "Sigiriya", "sigiriya,pidurangala,sunrise,rock,view"},
				{"Safari in Minneriya National Park", "Sigiriya", "sigiriya,safari,elephant,minneriya,wildlife"},
			},
		},
		Generic: []CatalogEntry{
			{"Explore local markets and cuisine", "Local Area", "market,food,cuisine,local,culture"},
			{"Visit historical landmarks and temples", "Local Area", "temple,history,heritage,landmark"},
			{"Scenic coastal drive along the beach", "Coastal Area", "coast,beach,drive,scenic,ocean"},
		},
	}
}

// LoadCatalogFile reads a YAML catalog. Destinations it names replace the defaults;
// a non-empty generic list replaces the default generic activities.
func LoadCatalogFile(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var file Catalog
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	out := DefaultCatalog()
	for k, v := range file.Destinations {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || len(v) == 0 {
			continue
		}
		out.Destinations[k] = v
	}
	if len(file.Generic) > 0 {
		out.Generic = file.Generic
	}
	if len(file.Order) > 0 {
		out.Order = file.Order
	}
	return out, nil
}

// RuleGenerator builds a plan from the catalog without any model call.
type RuleGenerator struct {
	catalog Catalog
}

func NewRuleGenerator(c Catalog) *RuleGenerator {
	if len(c.Generic) == 0 {
		c.Generic = DefaultCatalog().Generic
	}
	return &RuleGenerator{catalog: c}
}

// Generate returns one activity per day. Destinations mentioned in the prompt or destination
// contribute their activities in catalog key order; generic activities fill the rest.
func (g *RuleGenerator) Generate(prompt, destination string, days int) []PlannedActivity {
	if days <= 0 {
		return nil
	}
	text := strings.ToLower(prompt) + " " + strings.ToLower(destination)

	var pool []CatalogEntry
	for _, k := range g.catalog.keys() {
		if strings.Contains(text, k) {
			pool = append(pool, g.catalog.Destinations[k]...)
		}
	}
	if len(pool) == 0 {
		for i := 0; i < 3; i++ {
			pool = append(pool, g.catalog.Generic...)
		}
	}

	out := make([]PlannedActivity, 0, days)
	for day := 1; day <= days; day++ {
		var e CatalogEntry
		if len(pool) > 0 {
			e, pool = pool[0], pool[1:]
		} else {
			e = g.catalog.Generic[(day-1)%len(g.catalog.Generic)]
		}
		out = append(out, PlannedActivity{
			Day:      day,
			Title:    e.Activity,
			Location: e.Location,
			Keywords: e.Keywords,
		})
	}
	return out
}
