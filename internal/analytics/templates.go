package analytics

import (
	"fmt"
	"strings"
)

// NoMessagesSummary is the overall summary text for an empty batch
const NoMessagesSummary = "No messages found for this period."

// SenderSummary builds the one-sentence natural-language summary for a
// sender from structured counts. The result is truncated with an ellipsis
// once it exceeds maxLength characters.
func SenderSummary(messageCount, activeHours, mediaCount, questionCount int, keywords []string, maxLength int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Sent %d %s", messageCount, pluralize(messageCount, "message", "messages")))
	if activeHours >= 1 {
		sb.WriteString(fmt.Sprintf(" over %d %s", activeHours, pluralize(activeHours, "hour", "hours")))
	}
	if mediaCount > 0 {
		sb.WriteString(fmt.Sprintf(", including %d media %s", mediaCount, pluralize(mediaCount, "file", "files")))
	}
	if questionCount > 0 {
		sb.WriteString(fmt.Sprintf(", asked %d %s", questionCount, pluralize(questionCount, "question", "questions")))
	}
	if len(keywords) > 0 {
		sb.WriteString(", discussing ")
		sb.WriteString(joinTop(keywords, 3))
	}
	sb.WriteString(".")

	return Truncate(sb.String(), maxLength)
}

// OverallSummary builds the group-level summary sentence from structured
// counts, truncated to maxLength. Zero messages yields the fixed
// no-messages text.
func OverallSummary(participants, totalMessages int, topSenders, topKeywords []string, maxLength int) string {
	if totalMessages == 0 {
		return NoMessagesSummary
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d %s exchanged %d %s",
		participants, pluralize(participants, "participant", "participants"),
		totalMessages, pluralize(totalMessages, "message", "messages")))

	if len(topSenders) > 0 {
		sb.WriteString(". Most active: ")
		sb.WriteString(joinTop(topSenders, 3))
	}
	if len(topKeywords) > 0 {
		sb.WriteString(". Main topics: ")
		sb.WriteString(joinTop(topKeywords, 3))
	}
	sb.WriteString(".")

	return Truncate(sb.String(), maxLength)
}

// Truncate cuts s to maxLength characters, replacing the tail with "..."
// when it does not fit. Lengths are counted in runes.
func Truncate(s string, maxLength int) string {
	if maxLength <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}

func joinTop(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
