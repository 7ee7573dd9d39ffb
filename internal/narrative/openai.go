package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/J0YY/the-world-unscripted-sub001/internal/geosim"
)

// Config holds collaborator credentials and tuning.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAI is the production Client backed by a chat-completions API.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAI builds the production client. Returns a Disabled client
// via NewClient when no API key is configured.
func NewOpenAI(cfg Config, logger *slog.Logger) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}
}

// NewClient returns an OpenAI client when credentials are present and
// the Disabled client otherwise.
func NewClient(cfg Config, logger *slog.Logger) Client {
	if cfg.APIKey == "" {
		logger.Warn("narrative collaborator disabled: no api key configured")
		return Disabled{}
	}
	return NewOpenAI(cfg, logger)
}

const enrichSystemPrompt = `You are the narrative desk of a geopolitical simulation.
Given a resolved turn, produce a strict JSON object with keys:
"headlines" (2 short newspaper headlines, lead first),
"narrative" (2-4 sentences as a string array),
"perceptionReads" (array of {"actorId","read"} for each foreign power),
"recommendedMoves" (2 short strings),
"intelBriefs" (2 short strings),
"rumors" (2 short strings),
"diplomaticMessages" (1-2 short strings),
"incomingEvents" (1-2 short strings).
Respond with JSON only, no prose, no code fences.`

const converseSystemPrompt = `You are the foreign minister of the named nation in a
geopolitical simulation, chatting with the player's government.
Respond with a strict JSON object with keys:
"reply" (your in-character answer, 1-3 sentences),
"trustChange" (integer from -10 to 10, 0 if the message changes nothing),
"headline" (a short newspaper headline if the exchange is newsworthy, else "").
Respond with JSON only, no prose, no code fences.`

type turnReportWire struct {
	Headlines          []string                `json:"headlines"`
	Narrative          []string                `json:"narrative"`
	PerceptionReads    []geosim.PerceptionRead `json:"perceptionReads"`
	RecommendedMoves   []string                `json:"recommendedMoves"`
	IntelBriefs        []string                `json:"intelBriefs"`
	Rumors             []string                `json:"rumors"`
	DiplomaticMessages []string                `json:"diplomaticMessages"`
	IncomingEvents     []string                `json:"incomingEvents"`
}

type chatReplyWire struct {
	Reply       string `json:"reply"`
	TrustChange int    `json:"trustChange"`
	Headline    string `json:"headline"`
}

func (o *OpenAI) EnrichTurn(ctx context.Context, tc TurnContext) (*TurnReport, error) {
	user, err := json.Marshal(tc)
	if err != nil {
		return nil, fmt.Errorf("encoding turn context: %w", err)
	}

	content, err := o.complete(ctx, enrichSystemPrompt, string(user))
	if err != nil {
		return nil, err
	}

	var wire turnReportWire
	if err := json.Unmarshal([]byte(stripFences(content)), &wire); err != nil {
		return nil, fmt.Errorf("collaborator returned invalid JSON: %w", err)
	}
	if len(wire.Headlines) == 0 {
		return nil, errors.New("collaborator returned no headlines")
	}

	return &TurnReport{
		Headlines:          wire.Headlines,
		Narrative:          wire.Narrative,
		PerceptionReads:    wire.PerceptionReads,
		RecommendedMoves:   wire.RecommendedMoves,
		IntelBriefs:        wire.IntelBriefs,
		Rumors:             wire.Rumors,
		DiplomaticMessages: wire.DiplomaticMessages,
		IncomingEvents:     wire.IncomingEvents,
	}, nil
}

func (o *OpenAI) Converse(ctx context.Context, cc ChatContext) (*ChatReply, error) {
	user, err := json.Marshal(cc)
	if err != nil {
		return nil, fmt.Errorf("encoding chat context: %w", err)
	}

	content, err := o.complete(ctx, converseSystemPrompt, string(user))
	if err != nil {
		return nil, err
	}

	var wire chatReplyWire
	if err := json.Unmarshal([]byte(stripFences(content)), &wire); err != nil {
		return nil, fmt.Errorf("collaborator returned invalid JSON: %w", err)
	}
	if wire.Reply == "" {
		return nil, errors.New("collaborator returned an empty reply")
	}

	return &ChatReply{
		Reply:       wire.Reply,
		TrustChange: wire.TrustChange,
		Headline:    strings.TrimSpace(wire.Headline),
	}, nil
}

func (o *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// stripFences tolerates models that fence JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
