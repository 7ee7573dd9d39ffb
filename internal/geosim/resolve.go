package geosim

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// keyword nudges applied on top of the seeded drift. The directive is
// free text; these keep outcomes responsive to obvious intent without
// consulting the narrative collaborator.
var directiveNudges = []struct {
	keyword string
	apply   func(ind *Indicators)
}{
	{"military", func(i *Indicators) { i.Military += 3; i.Economy -= 1 }},
	{"mobilize", func(i *Indicators) { i.Military += 4; i.Stability -= 2 }},
	{"trade", func(i *Indicators) { i.Economy += 3 }},
	{"economy", func(i *Indicators) { i.Economy += 2 }},
	{"reform", func(i *Indicators) { i.Legitimacy += 3; i.Stability -= 1 }},
	{"crackdown", func(i *Indicators) { i.Stability += 2; i.Legitimacy -= 4 }},
	{"backchannel", func(i *Indicators) { i.Sovereignty += 1 }},
	{"concede", func(i *Indicators) { i.Sovereignty -= 3; i.Stability += 1 }},
}

var consequenceTemplates = []string{
	"Ministries report %s reaction across the provinces.",
	"Foreign desks read the move as %s.",
	"The security council logs the week as %s.",
}

var consequenceTones = []string{"measured", "volatile", "skeptical", "favorable", "mixed"}

var unknownSignals = []string{
	"Unverified troop movements near the eastern border.",
	"A foreign embassy burned its document stores overnight.",
	"Currency traders are positioning against the region.",
	"An intercepted cable references your government by codename.",
}

// ResolveTurn deterministically advances the world by exactly one turn
// and returns the outcome plus the pending resolution report for the
// resolved turn. The world is mutated in place; the caller owns
// persistence of both the world and outcome.NextSnapshot in one
// logical update. Enrichment is strictly a post-resolution concern.
func ResolveTurn(w *WorldState, prev *GameSnapshot, actions []string, directive string) (*TurnOutcome, *ResolutionReport) {
	resolved := w.Turn
	rng := seedSource("resolve", w.Seed, strconv.Itoa(resolved), directive, strings.Join(actions, "\n"))

	before := w.Indicators

	// Baseline drift plus directive nudges.
	w.Indicators.Stability += rng.Intn(7) - 3
	w.Indicators.Legitimacy += rng.Intn(7) - 3
	w.Indicators.Economy += rng.Intn(7) - 3
	w.Indicators.Military += rng.Intn(5) - 2
	w.Indicators.Sovereignty += rng.Intn(5) - 2

	lowered := strings.ToLower(directive + " " + strings.Join(actions, " "))
	for _, nudge := range directiveNudges {
		if strings.Contains(lowered, nudge.keyword) {
			nudge.apply(&w.Indicators)
		}
	}
	w.Indicators.clampAll()

	translated := translateActions(actions, directive)

	shifts := applyActorDrift(w, rng)

	tone := consequenceTones[rng.Intn(len(consequenceTones))]
	consequences := []string{
		fmt.Sprintf(consequenceTemplates[rng.Intn(len(consequenceTemplates))], tone),
	}
	if len(translated) > 0 {
		consequences = append(consequences, fmt.Sprintf("Directive in motion: %s", translated[0]))
	}

	signals := []string{unknownSignals[rng.Intn(len(unknownSignals))]}
	if rng.Intn(2) == 0 {
		signals = append(signals, unknownSignals[rng.Intn(len(unknownSignals))])
	}

	w.History = append(w.History, TurnRecord{
		Turn:      resolved,
		Directive: directive,
		Summary:   consequences[0],
	})
	if len(w.History) > historyCapacity {
		w.History = w.History[len(w.History)-historyCapacity:]
	}

	w.Turn = resolved + 1

	if failure := checkTerminal(w); failure != nil {
		w.Status = StatusFailed
		w.Failure = failure
	}

	outcome := &TurnOutcome{
		TurnResolved:         resolved,
		PublicResolutionText: fmt.Sprintf("Turn %d resolved. %s", resolved, consequences[0]),
		Consequences:         consequences,
		SignalsUnknown:       signals,
		Failure:              w.Failure,
		NextSnapshot:         Project(w, prev),
	}

	report := &ResolutionReport{
		TurnNumber:        resolved,
		Directive:         directive,
		TranslatedActions: translated,
		Deltas:            deltasBetween(before, w.Indicators),
		ActorShifts:       shifts,
		Threats:           threatsFor(w.Indicators),
		Pending:           true,
	}

	return outcome, report
}

func (i *Indicators) clampAll() {
	i.Stability = clampTrust(i.Stability)
	i.Legitimacy = clampTrust(i.Legitimacy)
	i.Economy = clampTrust(i.Economy)
	i.Military = clampTrust(i.Military)
	i.Sovereignty = clampTrust(i.Sovereignty)
}

func translateActions(actions []string, directive string) []string {
	translated := make([]string, 0, len(actions)+1)
	if d := strings.TrimSpace(directive); d != "" {
		translated = append(translated, d)
	}
	for _, a := range actions {
		if a = strings.TrimSpace(a); a != "" {
			translated = append(translated, a)
		}
	}
	return translated
}

// applyActorDrift moves each actor's trust by a small seeded delta.
// Iteration is over sorted map keys so resolution stays deterministic.
func applyActorDrift(w *WorldState, rng *rand.Rand) []ActorShift {
	keys := make([]string, 0, len(w.Actors))
	for k := range w.Actors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	shifts := make([]ActorShift, 0, len(keys))
	for _, k := range keys {
		a := w.Actors[k]
		beforeTrust := a.Trust
		a.AdjustTrust(rng.Intn(7) - 3)
		shifts = append(shifts, ActorShift{
			ActorID: a.ID,
			Before:  beforeTrust,
			After:   a.Trust,
		})
	}
	return shifts
}

func threatsFor(ind Indicators) []string {
	var threats []string
	if ind.Stability <= 25 {
		threats = append(threats, "Domestic unrest approaching critical mass.")
	}
	if ind.Legitimacy <= 25 {
		threats = append(threats, "Opposition factions question the government's mandate.")
	}
	if ind.Sovereignty <= 30 {
		threats = append(threats, "Foreign leverage over national decisions is growing.")
	}
	if ind.Economy <= 25 {
		threats = append(threats, "Reserves are thinning; a currency crisis is plausible.")
	}
	if threats == nil {
		threats = []string{}
	}
	return threats
}

func checkTerminal(w *WorldState) *FailureDetails {
	var (
		ftype   FailureType
		title   string
		drivers []string
	)
	switch {
	case w.Indicators.Stability <= 10 || w.Indicators.Legitimacy <= 8:
		ftype = FailureDomesticOuster
		title = "The government has been ousted from within."
		drivers = []string{"collapsed stability", "evaporated legitimacy"}
	case w.Indicators.Sovereignty <= 10:
		ftype = FailureLossOfSovereignty
		title = "National sovereignty has effectively ended."
		drivers = []string{"foreign control of core institutions"}
	default:
		return nil
	}

	last := w.History
	if len(last) > lastTurnWindow {
		last = last[len(last)-lastTurnWindow:]
	}
	return &FailureDetails{
		Type:                 ftype,
		Title:                title,
		PrimaryDrivers:       drivers,
		PointOfNoReturnGuess: fmt.Sprintf("around turn %d", max(1, w.Turn-2)),
		LastTurns:            append([]TurnRecord{}, last...),
	}
}
