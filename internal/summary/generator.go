package summary

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/whatsapp-summary-bot/internal/analytics"
	"github.com/whatsapp-summary-bot/internal/models"
)

const (
	senderTopKeywords = 5
	senderTopEmojis   = 5
	groupTopKeywords  = 10
	groupTopEmojis    = 10
	activityPeakCount = 6
	summaryTopItems   = 3
)

// Enhancer rewrites the templated overall summary, typically with an LLM.
// Implementations must treat failure as recoverable: the generator falls
// back to the template on any error.
type Enhancer interface {
	EnhanceOverall(ctx context.Context, summary *models.GroupSummary) (string, error)
}

// Generator assembles daily group summaries from raw message batches
type Generator struct {
	enhancer Enhancer
	logger   zerolog.Logger
}

// NewGenerator creates a new summary generator. The enhancer is optional;
// pass nil to always use templated prose.
func NewGenerator(enhancer Enhancer, logger zerolog.Logger) *Generator {
	return &Generator{
		enhancer: enhancer,
		logger:   logger.With().Str("component", "summary_generator").Logger(),
	}
}

// Generate builds a GroupSummary for one group over one time range. The
// result is referentially complete: every field is populated even for an
// empty batch, and the method never fails.
func (g *Generator) Generate(
	ctx context.Context,
	groupID, groupName string,
	messages []models.ChatMessage,
	timeRange models.TimeRange,
	options *models.SummaryOptions,
) *models.GroupSummary {
	startTime := time.Now()
	opts := options.Merged()

	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("timezone", opts.Timezone).
			Str("group_id", groupID).
			Msg("Invalid summary timezone, falling back to UTC")
		loc = time.UTC
	}

	filtered := analytics.FilterMessages(messages, *opts.ExcludeSystemMessages)
	groups := analytics.GroupBySender(filtered)

	insights := make([]models.SenderInsight, 0, len(groups))
	for _, sg := range groups {
		insights = append(insights, g.buildSenderInsight(sg, loc, opts))
	}

	aggregate := concatBodies(filtered)

	topKeywords := []models.KeywordCount{}
	if *opts.IncludeKeywords {
		topKeywords = analytics.ExtractKeywords(aggregate, opts.KeywordMinCount, groupTopKeywords)
	}

	topEmojis := []models.EmojiCount{}
	if *opts.IncludeEmojis {
		topEmojis = analytics.ExtractEmojis(aggregate, opts.EmojiMinCount, groupTopEmojis)
	}

	peaks := analytics.TopActivityPeaks(filtered, loc, activityPeakCount)

	overall := analytics.OverallSummary(
		len(groups),
		len(filtered),
		senderNames(groups),
		keywordStrings(topKeywords),
		opts.MaxSummaryLength,
	)

	result := &models.GroupSummary{
		GroupID:            groupID,
		GroupName:          groupName,
		TimeRange:          timeRange,
		TotalMessages:      len(filtered),
		ActiveParticipants: len(groups),
		SenderInsights:     insights,
		OverallSummary:     overall,
		TopKeywords:        topKeywords,
		TopEmojis:          topEmojis,
		ActivityPeaks:      peaks,
		MessageTypeCounts:  analytics.MessageTypeCounts(filtered),
		GeneratedAt:        time.Now().UTC(),
		Status:             models.SummaryCompleted,
	}

	if g.enhancer != nil && len(filtered) > 0 {
		if enhanced, err := g.enhancer.EnhanceOverall(ctx, result); err != nil {
			g.logger.Warn().
				Err(err).
				Str("group_id", groupID).
				Msg("Summary enhancement failed, keeping templated text")
		} else if enhanced != "" {
			result.OverallSummary = analytics.Truncate(enhanced, opts.MaxSummaryLength)
		}
	}

	result.ProcessingTimeMs = int(time.Since(startTime).Milliseconds())

	g.logger.Debug().
		Str("group_id", groupID).
		Int("total_messages", result.TotalMessages).
		Int("participants", result.ActiveParticipants).
		Int("processing_ms", result.ProcessingTimeMs).
		Msg("Group summary generated")

	return result
}

// buildSenderInsight computes the per-sender aggregate for one group
func (g *Generator) buildSenderInsight(sg analytics.SenderGroup, loc *time.Location, opts models.SummaryOptions) models.SenderInsight {
	text := concatBodies(sg.Messages)

	keywords := []models.KeywordCount{}
	if *opts.IncludeKeywords {
		keywords = analytics.ExtractKeywords(text, opts.KeywordMinCount, senderTopKeywords)
	}

	emojis := []models.EmojiCount{}
	if *opts.IncludeEmojis {
		emojis = analytics.ExtractEmojis(text, opts.EmojiMinCount, senderTopEmojis)
	}

	histogram, peak := analytics.ActivityPattern(sg.Messages, loc)
	engagement := analytics.Engagement(sg.Messages)

	activeHours := int(sg.Last.Sub(sg.First).Hours())

	kwStrings := keywordStrings(keywords)
	if len(kwStrings) > summaryTopItems {
		kwStrings = kwStrings[:summaryTopItems]
	}

	return models.SenderInsight{
		SenderID:     sg.SenderID,
		SenderName:   displayName(sg),
		MessageCount: len(sg.Messages),
		Summary: analytics.SenderSummary(
			len(sg.Messages),
			activeHours,
			engagement.MediaCount,
			engagement.QuestionCount,
			kwStrings,
			opts.MaxSenderSummaryLength,
		),
		TopKeywords:    keywords,
		TopEmojis:      emojis,
		HourlyActivity: histogram,
		PeakHour:       peak,
		Engagement:     engagement,
	}
}

func concatBodies(messages []models.ChatMessage) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(msg.Body)
	}
	return sb.String()
}

func senderNames(groups []analytics.SenderGroup) []string {
	names := make([]string, 0, len(groups))
	for _, sg := range groups {
		names = append(names, displayName(sg))
	}
	return names
}

func displayName(sg analytics.SenderGroup) string {
	if sg.SenderName != "" {
		return sg.SenderName
	}
	return sg.SenderID
}

func keywordStrings(keywords []models.KeywordCount) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, kw.Keyword)
	}
	return out
}
