package summary

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"github.com/whatsapp-summary-bot/internal/models"
	"google.golang.org/api/option"
)

// GeminiEnhancer rewrites templated overall summaries into short
// natural-language digests using Gemini
type GeminiEnhancer struct {
	apiKey      string
	model       string
	timeout     time.Duration
	logger      zerolog.Logger
	genaiClient *genai.Client
	mu          sync.Mutex
}

// NewGeminiEnhancer creates a new Gemini-backed summary enhancer
func NewGeminiEnhancer(apiKey, model string, timeout int, logger zerolog.Logger) *GeminiEnhancer {
	return &GeminiEnhancer{
		apiKey:      apiKey,
		model:       model,
		timeout:     time.Duration(timeout) * time.Second,
		logger:      logger.With().Str("component", "summary_enhancer").Logger(),
		genaiClient: nil, // Created on first use
	}
}

// getClient returns or creates a genai client (thread-safe)
func (e *GeminiEnhancer) getClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.genaiClient != nil {
		return e.genaiClient, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(e.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	e.genaiClient = client
	e.logger.Info().Msg("Gemini client created and cached")
	return e.genaiClient, nil
}

// Close closes the enhancer and releases resources
func (e *GeminiEnhancer) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.genaiClient != nil {
		err := e.genaiClient.Close()
		e.genaiClient = nil
		if err != nil {
			e.logger.Error().Err(err).Msg("Failed to close Gemini client")
			return err
		}
		e.logger.Info().Msg("Gemini client closed")
	}
	return nil
}

// EnhanceOverall asks the model for a short prose digest of the computed
// statistics. Errors bubble up so the generator can fall back to the
// template; the structural contract of GroupSummary is unchanged.
func (e *GeminiEnhancer) EnhanceOverall(ctx context.Context, summary *models.GroupSummary) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	client, err := e.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get genai client: %w", err)
	}

	model := client.GenerativeModel(e.model)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.SetTopK(40)
	model.SetMaxOutputTokens(512)

	prompt := e.buildPrompt(summary)

	e.logger.Debug().
		Str("group_id", summary.GroupID).
		Int("prompt_length", len(prompt)).
		Msg("Sending summary enhancement request")

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from LLM")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in response")
	}

	var responseText strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(responseText.String())
	if text == "" {
		return "", fmt.Errorf("empty text in LLM response")
	}

	e.logger.Debug().
		Str("group_id", summary.GroupID).
		Int("response_length", len(text)).
		Msg("Received enhanced summary")

	return text, nil
}

// buildPrompt renders the computed statistics into a compact prompt
func (e *GeminiEnhancer) buildPrompt(summary *models.GroupSummary) string {
	var sb strings.Builder

	sb.WriteString("Write a 2-3 sentence overview of one day of activity in the group chat \"")
	sb.WriteString(summary.GroupName)
	sb.WriteString("\".\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("1. Plain prose, no bullet points, no markdown\n")
	sb.WriteString("2. Mention the most active participants and the main topics\n")
	sb.WriteString("3. Do not invent facts beyond the statistics below\n\n")

	sb.WriteString(fmt.Sprintf("Total messages: %d\n", summary.TotalMessages))
	sb.WriteString(fmt.Sprintf("Participants: %d\n", summary.ActiveParticipants))

	if len(summary.TopKeywords) > 0 {
		sb.WriteString("Top keywords: ")
		for i, kw := range summary.TopKeywords {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s (%d)", kw.Keyword, kw.Count))
		}
		sb.WriteString("\n")
	}

	const maxSendersInPrompt = 10
	sb.WriteString("Per-participant activity:\n")
	for i, insight := range summary.SenderInsights {
		if i >= maxSendersInPrompt {
			sb.WriteString(fmt.Sprintf("... and %d more participants\n", len(summary.SenderInsights)-maxSendersInPrompt))
			break
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", insight.SenderName, insight.Summary))
	}

	sb.WriteString("\nOverview:")
	return sb.String()
}
