// Package narrative is the boundary to the external narrative
// collaborator. Enrichment is latent (seconds), costed, and
// non-idempotent — callers must de-duplicate concurrent requests
// themselves; this package only issues calls.
package narrative

import (
	"context"
	"errors"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

var (
	// ErrUnavailable means the collaborator is off (no credentials or
	// globally disabled). The enrichment path cannot proceed.
	ErrUnavailable = errors.New("narrative collaborator unavailable")
	// ErrTimeout means the collaborator did not answer within the
	// caller's deadline.
	ErrTimeout = errors.New("narrative collaborator timed out")
)

// TurnContext is everything the collaborator needs to enrich one
// resolved turn. All fields come from the deterministic resolver.
type TurnContext struct {
	Country           geosim.CountryProfile
	Turn              int
	Directive         string
	TranslatedActions []string
	Deltas            []geosim.IndicatorDelta
	ActorShifts       []geosim.ActorShift
	Threats           []string
	Actors            []ActorBrief
}

// ActorBrief names a foreign power for prompt context.
type ActorBrief struct {
	ID      string
	Name    string
	Trust   int
	Posture string
}

// TurnReport is the structured enrichment result for one turn. The
// first headline is the lead; the rest hydrate the briefing.
type TurnReport struct {
	Headlines          []string
	Narrative          []string
	PerceptionReads    []geosim.PerceptionRead
	RecommendedMoves   []string
	IntelBriefs        []string
	Rumors             []string
	DiplomaticMessages []string
	IncomingEvents     []string
}

// Lead returns the lead headline, or an empty string.
func (r *TurnReport) Lead() string {
	if len(r.Headlines) == 0 {
		return ""
	}
	return r.Headlines[0]
}

// ChatContext frames one diplomacy exchange for the collaborator.
type ChatContext struct {
	Country    geosim.CountryProfile
	NationID   string
	NationName string
	Stance     int
	History    []geosim.ChatEntry
	Message    string
}

// ChatReply is the collaborator's answer to a diplomacy message.
// TrustChange and Headline are optional side effects; zero/empty means
// no world-state effect.
type ChatReply struct {
	Reply       string
	TrustChange int
	Headline    string
}

// Client generates narrative content. Implementations must honor the
// caller's context deadline.
type Client interface {
	EnrichTurn(ctx context.Context, tc TurnContext) (*TurnReport, error)
	Converse(ctx context.Context, cc ChatContext) (*ChatReply, error)
}

// Disabled is a Client for collaborator-offline mode: every call
// reports ErrUnavailable.
type Disabled struct{}

func (Disabled) EnrichTurn(context.Context, TurnContext) (*TurnReport, error) {
	return nil, ErrUnavailable
}

func (Disabled) Converse(context.Context, ChatContext) (*ChatReply, error) {
	return nil, ErrUnavailable
}
