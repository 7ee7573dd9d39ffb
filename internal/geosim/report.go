package geosim

// IndicatorDelta is one before/after/delta triple in a resolution
// report.
type IndicatorDelta struct {
	Name   string `json:"name"`
	Before int    `json:"before"`
	After  int    `json:"after"`
	Delta  int    `json:"delta"`
}

// ActorShift records how one foreign power's trust moved during a turn.
type ActorShift struct {
	ActorID string `json:"actorId"`
	Before  int    `json:"before"`
	After   int    `json:"after"`
	Note    string `json:"note,omitempty"`
}

// PerceptionRead is a generated read on how one actor perceived the
// player's move.
type PerceptionRead struct {
	ActorID string `json:"actorId"`
	Read    string `json:"read"`
}

// NarrativeReport is the enrichment sub-object of a resolution report.
// It only exists once enrichment has landed.
type NarrativeReport struct {
	Headline         string           `json:"headline"`
	Narrative        []string         `json:"narrative"`
	PerceptionReads  []PerceptionRead `json:"perceptionReads"`
	RecommendedMoves []string         `json:"recommendedMoves"`
}

// ResolutionReport is the enrichment artifact for one resolved turn.
// Until enrichment lands the report is a well-defined partial shape
// with Pending set — never a null response. Error distinguishes a
// failed enrichment from a pending one; a failure is reported but not
// persisted, so a retry stays possible.
type ResolutionReport struct {
	TurnNumber        int              `json:"turnNumber"`
	Directive         string           `json:"directive"`
	TranslatedActions []string         `json:"translatedActions"`
	Deltas            []IndicatorDelta `json:"deltas"`
	ActorShifts       []ActorShift     `json:"actorShifts"`
	Threats           []string         `json:"threats"`
	Pending           bool             `json:"pending"`
	Error             string           `json:"error,omitempty"`
	LLM               *NarrativeReport `json:"llm,omitempty"`
}

func deltasBetween(before, after Indicators) []IndicatorDelta {
	rows := []struct {
		name          string
		before, after int
	}{
		{"stability", before.Stability, after.Stability},
		{"legitimacy", before.Legitimacy, after.Legitimacy},
		{"economy", before.Economy, after.Economy},
		{"military", before.Military, after.Military},
		{"sovereignty", before.Sovereignty, after.Sovereignty},
	}
	deltas := make([]IndicatorDelta, 0, len(rows))
	for _, row := range rows {
		deltas = append(deltas, IndicatorDelta{
			Name:   row.name,
			Before: row.before,
			After:  row.after,
			Delta:  row.after - row.before,
		})
	}
	return deltas
}
