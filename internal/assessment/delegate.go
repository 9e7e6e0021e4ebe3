package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/skyvern-ops/sora-engine/internal/config"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Delegate error taxonomy. These are fatal to the request, unlike gatherer
// failures, and each maps to a distinct caller-visible error class.
var (
	ErrUpstreamUnavailable = errors.New("scoring delegate unavailable")
	ErrRateLimited         = errors.New("scoring delegate rate limited")
	ErrQuotaExhausted      = errors.New("scoring delegate quota exhausted")
	ErrInvalidResponse     = errors.New("scoring delegate returned invalid response")
)

// Completer is the text-completion boundary: one prompt pair in, free text
// out. The production implementation is OpenAIDelegate; tests substitute
// fakes.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OpenAIDelegate calls the OpenAI chat-completions API. One attempt per
// request with a caller-enforced timeout and no retry: the upstream is
// rate-limited and a retry risks duplicate persisted assessments.
type OpenAIDelegate struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
	logger      *logger.Logger
}

// NewOpenAIDelegate creates a new OpenAI scoring delegate
func NewOpenAIDelegate(cfg config.OpenAIConfig, logger *logger.Logger) *OpenAIDelegate {
	if cfg.APIKey == "" {
		logger.Warn("OpenAI API key is empty - risk assessments will fail")
	}

	return &OpenAIDelegate{
		client:      openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		logger:      logger.Named("ai-delegate"),
	}
}

// Complete sends the prompt pair and returns the raw completion text.
func (d *OpenAIDelegate) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	d.logger.Debug("Calling scoring delegate",
		logger.String("model", d.model),
		logger.Int("system_prompt_len", len(systemPrompt)),
		logger.Int("user_prompt_len", len(userPrompt)))

	completion, err := d.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(d.model),
		Temperature: openai.Float(d.temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return "", classifyDelegateError(err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}

	return completion.Choices[0].Message.Content, nil
}

// classifyDelegateError maps transport/API errors onto the delegate error
// taxonomy so callers can tell "back off" from "fix billing" from "defect".
func classifyDelegateError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			if apiErr.Code == "insufficient_quota" {
				return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
			}
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// delegateResponse is the JSON schema the scoring prompt instructs the
// delegate to produce.
type delegateResponse struct {
	OverallScore    float64            `json:"overall_score"`
	Recommendation  string             `json:"recommendation"`
	HardStop        bool               `json:"hard_stop"`
	HardStopReason  string             `json:"hard_stop_reason"`
	Categories      []delegateCategory `json:"categories"`
	Recommendations []string           `json:"recommendations"`
	Prerequisites   []string           `json:"prerequisites"`
	Summary         string             `json:"summary"`
}

type delegateCategory struct {
	Category string   `json:"category"`
	Score    float64  `json:"score"`
	Decision string   `json:"go_decision"`
	Factors  []string `json:"factors"`
	Concerns []string `json:"concerns"`
}

// stripCodeFences removes markdown code-fence wrapping that the delegate
// sometimes adds around its JSON, then trims to the outermost JSON object.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// ParseScoringResponse validates and normalizes the delegate's free-text
// answer into a bounded score set. Any parse or schema failure is
// ErrInvalidResponse: a delegate malfunction, not a safety verdict.
func ParseScoringResponse(text string) (*Result, error) {
	var parsed delegateResponse
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	byName := make(map[string]delegateCategory, len(parsed.Categories))
	for _, c := range parsed.Categories {
		byName[c.Category] = c
	}

	result := &Result{
		OverallScore:    NormalizeScore(parsed.OverallScore),
		Recommendation:  normalizeRecommendation(parsed.Recommendation),
		Recommendations: parsed.Recommendations,
		Prerequisites:   parsed.Prerequisites,
		Summary:         parsed.Summary,
		Disclaimer:      Disclaimer,
	}

	for _, name := range Categories {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing category %q", ErrInvalidResponse, name)
		}
		result.Categories = append(result.Categories, CategoryScore{
			Category: name,
			Score:    NormalizeScore(c.Score),
			Decision: normalizeDecision(c.Decision),
			Factors:  c.Factors,
			Concerns: c.Concerns,
		})
	}

	return result, nil
}

func normalizeRecommendation(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case RecommendationGo:
		return RecommendationGo
	case RecommendationNoGo, "nogo", "no_go":
		return RecommendationNoGo
	default:
		return RecommendationCaution
	}
}

func normalizeDecision(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case DecisionGo:
		return DecisionGo
	case DecisionNoGo, "NOGO", "NO_GO":
		return DecisionNoGo
	default:
		return DecisionConditional
	}
}
