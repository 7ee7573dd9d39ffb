// Package geosim defines the core domain types and the deterministic
// simulation logic: world state, the player-facing snapshot projection,
// and turn resolution. Narrative enrichment is a separate concern and
// never happens inside this package.
package geosim

import "time"

// GameStatus is the lifecycle state of a game. FAILED is terminal:
// no further turns are accepted once a game reaches it.
type GameStatus string

const (
	StatusActive GameStatus = "ACTIVE"
	StatusFailed GameStatus = "FAILED"
)

// FailureType classifies how a game ended.
type FailureType string

const (
	FailureDomesticOuster     FailureType = "DOMESTIC_OUSTER"
	FailureLossOfSovereignty  FailureType = "LOSS_OF_SOVEREIGNTY"
)

// HeadlineCapacity bounds the briefing headline ring buffer.
const HeadlineCapacity = 6

// lastTurnWindow bounds the trailing turn window reported on failure.
const lastTurnWindow = 3

// historyCapacity bounds the world's trailing turn history.
const historyCapacity = 12

// Actor is one foreign-power entity in the authoritative world state.
// ID is a stable identifier distinct from the actor's map key in
// WorldState.Actors. Trust is always within [0,100].
type Actor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Trust   int    `json:"trust"`
	Posture string `json:"posture"`
}

// AdjustTrust applies a bounded delta and returns the new trust value.
// This is the only mutation path for trust.
func (a *Actor) AdjustTrust(delta int) int {
	a.Trust = clampTrust(a.Trust + delta)
	return a.Trust
}

func clampTrust(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Indicators are the national health gauges driving terminal conditions.
type Indicators struct {
	Stability   int `json:"stability"`
	Legitimacy  int `json:"legitimacy"`
	Economy     int `json:"economy"`
	Military    int `json:"military"`
	Sovereignty int `json:"sovereignty"`
}

// Briefing is the bounded collection of narrative items shown to the
// player. Headlines is a ring: newest first, capped at HeadlineCapacity.
type Briefing struct {
	Headlines          []string `json:"headlines"`
	IntelBriefs        []string `json:"intelBriefs"`
	Rumors             []string `json:"rumors"`
	DiplomaticMessages []string `json:"diplomaticMessages"`
}

// NewBriefing returns a briefing with empty (non-nil) collections.
// Used when a legacy record is missing its briefing container.
func NewBriefing() *Briefing {
	return &Briefing{
		Headlines:          []string{},
		IntelBriefs:        []string{},
		Rumors:             []string{},
		DiplomaticMessages: []string{},
	}
}

// PushHeadline inserts a headline at the front of the ring, evicting
// the oldest entry once capacity is exceeded.
func (b *Briefing) PushHeadline(h string) {
	b.Headlines = append([]string{h}, b.Headlines...)
	if len(b.Headlines) > HeadlineCapacity {
		b.Headlines = b.Headlines[:HeadlineCapacity]
	}
}

func (b *Briefing) clone() *Briefing {
	if b == nil {
		return nil
	}
	return &Briefing{
		Headlines:          append([]string{}, b.Headlines...),
		IntelBriefs:        append([]string{}, b.IntelBriefs...),
		Rumors:             append([]string{}, b.Rumors...),
		DiplomaticMessages: append([]string{}, b.DiplomaticMessages...),
	}
}

// CurrentAffairs holds the mutable narrative surface of the world.
// Briefing may be nil on records created before briefings existed.
type CurrentAffairs struct {
	Briefing       *Briefing `json:"briefing"`
	IncomingEvents []string  `json:"incomingEvents"`
}

// TurnRecord summarizes one resolved turn for the trailing history.
type TurnRecord struct {
	Turn      int    `json:"turn"`
	Directive string `json:"directive"`
	Summary   string `json:"summary"`
}

// WorldState is the authoritative per-game record. It is never sent to
// the client verbatim; Project derives the player-visible view.
type WorldState struct {
	GameID     string            `json:"gameId"`
	Seed       string            `json:"seed"`
	Turn       int               `json:"turn"`
	Status     GameStatus        `json:"status"`
	Profile    CountryProfile    `json:"profile"`
	Indicators Indicators        `json:"indicators"`
	Actors     map[string]*Actor `json:"actors"`
	Current    CurrentAffairs    `json:"current"`
	History    []TurnRecord      `json:"history"`
	Failure    *FailureDetails   `json:"failure,omitempty"`
}

// FailureDetails marks a terminal game. LastTurns carries the trailing
// window of resolved turns leading into the collapse.
type FailureDetails struct {
	Type                 FailureType  `json:"type"`
	Title                string       `json:"title"`
	PrimaryDrivers       []string     `json:"primaryDrivers"`
	PointOfNoReturnGuess string       `json:"pointOfNoReturnGuess"`
	LastTurns            []TurnRecord `json:"lastTurns"`
}

// CountryProfile describes the player's country. Static after genesis.
type CountryProfile struct {
	Name       string `json:"name"`
	Government string `json:"government"`
	Region     string `json:"region"`
	Summary    string `json:"summary"`
}

// Role identifies who wrote a diplomacy chat entry.
type Role string

const (
	RoleUser     Role = "user"
	RoleMinister Role = "minister"
)

// ChatEntry is one message in a nation's diplomacy chat history.
type ChatEntry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Nation is the snapshot-side view of an Actor. Stance mirrors the
// actor's trust and must never diverge from it after an update.
type Nation struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Stance      int         `json:"stance"`
	ChatHistory []ChatEntry `json:"chatHistory"`
}

// DiplomacyView is the snapshot's diplomacy sub-view. A nil
// DiplomacyView on a snapshot means "not yet initialized" (legacy
// record), which is distinct from an empty nations list.
type DiplomacyView struct {
	Nations []Nation `json:"nations"`
}

// Nation returns a pointer to the nation with the given id, or nil.
func (d *DiplomacyView) Nation(id string) *Nation {
	if d == nil {
		return nil
	}
	for i := range d.Nations {
		if d.Nations[i].ID == id {
			return &d.Nations[i]
		}
	}
	return nil
}

// PlayerView is the gameplay surface of the snapshot.
type PlayerView struct {
	Indicators     Indicators `json:"indicators"`
	Briefing       *Briefing  `json:"briefing"`
	IncomingEvents []string   `json:"incomingEvents"`
}

// GameSnapshot is the derived, player-safe view of a world (fog of
// war). It is the only representation the client ever reads.
type GameSnapshot struct {
	GameID         string          `json:"gameId"`
	Turn           int             `json:"turn"`
	Status         GameStatus      `json:"status"`
	CountryProfile CountryProfile  `json:"countryProfile"`
	PlayerView     PlayerView      `json:"playerView"`
	Diplomacy      *DiplomacyView  `json:"diplomacy,omitempty"`
	Failure        *FailureDetails `json:"failure,omitempty"`
}

// TurnOutcome is the one-shot result of resolving a turn. A non-nil
// Failure is a one-way terminal transition.
type TurnOutcome struct {
	TurnResolved         int             `json:"turnResolved"`
	PublicResolutionText string          `json:"publicResolutionText"`
	Consequences         []string        `json:"consequences"`
	SignalsUnknown       []string        `json:"signalsUnknown"`
	NextSnapshot         *GameSnapshot   `json:"nextSnapshot"`
	Failure              *FailureDetails `json:"failure,omitempty"`
}
