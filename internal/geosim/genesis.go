package geosim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
)

// Content tables for genesis. Selection is driven entirely by the
// seed-derived RNG, so the same seed always produces the same world.
var (
	countryNames = []string{
		"Veridia", "Kestrovia", "Almara", "Tyrennia", "Ostrava Libre",
		"New Carthay", "Suvalki", "Meridonia",
	}
	governments = []string{
		"parliamentary republic", "presidential republic",
		"constitutional monarchy", "transitional council",
	}
	regions = []string{
		"the Adriatic rim", "the Caspian corridor", "the southern steppe",
		"the island chain", "the mountain frontier",
	}
	foreignPowers = []struct {
		name string
		code string
	}{
		{"Drassen Federation", "DRF"},
		{"Kingdom of Yastrebia", "YAS"},
		{"Corvossa", "COR"},
		{"United Provinces of Halvern", "UPH"},
		{"The Meridian Compact", "MER"},
		{"Ostmark", "OST"},
		{"Republic of Tannet", "TAN"},
	}
	openingHeadlines = []string{
		"New government takes office amid cautious optimism",
		"Markets steady as transition completes",
		"Capital quiet after months of uncertainty",
		"Foreign ministries signal willingness to engage",
	}
	openingIntel = []string{
		"Border garrisons report routine activity.",
		"Central bank reserves within expected bounds.",
		"No unusual signals traffic detected this week.",
	}
	openingEvents = []string{
		"A trade delegation requests an audience.",
		"Provincial governors ask for a budget review.",
		"An unmarked convoy was sighted near the frontier.",
	}
)

func seedSource(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// NewWorld creates the authoritative world state for a new game. The
// same seed always yields an identical world; gameID only names the
// record and never influences content.
func NewWorld(gameID, seed string) *WorldState {
	rng := seedSource("genesis", seed)

	profile := CountryProfile{
		Name:       countryNames[rng.Intn(len(countryNames))],
		Government: governments[rng.Intn(len(governments))],
		Region:     regions[rng.Intn(len(regions))],
	}
	profile.Summary = fmt.Sprintf("%s is a %s on %s, newly under your direction.",
		profile.Name, profile.Government, profile.Region)

	actors := make(map[string]*Actor)
	for _, i := range rng.Perm(len(foreignPowers))[:4] {
		p := foreignPowers[i]
		key := strings.ToLower(strings.ReplaceAll(p.name, " ", "-"))
		actors[key] = &Actor{
			ID:      p.code,
			Name:    p.name,
			Trust:   35 + rng.Intn(41),
			Posture: []string{"guarded", "cordial", "opportunistic"}[rng.Intn(3)],
		}
	}

	briefing := NewBriefing()
	briefing.PushHeadline(openingHeadlines[rng.Intn(len(openingHeadlines))])
	briefing.IntelBriefs = append(briefing.IntelBriefs, openingIntel[rng.Intn(len(openingIntel))])

	return &WorldState{
		GameID: gameID,
		Seed:   seed,
		Turn:   1,
		Status: StatusActive,
		Profile: profile,
		Indicators: Indicators{
			Stability:   45 + rng.Intn(21),
			Legitimacy:  45 + rng.Intn(21),
			Economy:     40 + rng.Intn(26),
			Military:    35 + rng.Intn(26),
			Sovereignty: 55 + rng.Intn(21),
		},
		Actors: actors,
		Current: CurrentAffairs{
			Briefing:       briefing,
			IncomingEvents: []string{openingEvents[rng.Intn(len(openingEvents))]},
		},
	}
}
