// Package analytics computes keyword, emoji and activity statistics over
// batches of chat messages. Everything here is pure computation: no I/O,
// no errors, deterministic for a given input. Empty input degrades to
// empty result structures.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/whatsapp-summary-bot/internal/models"
)

// HoursPerDay is the size of the hour-of-day activity histogram
const HoursPerDay = 24

// systemPhrases are WhatsApp system-notice fragments matched
// case-insensitively against message bodies when system messages are
// excluded
var systemPhrases = []string{
	"joined using this group's invite link",
	"created this group",
	"was added",
	"was removed",
	"left the group",
	"changed the subject",
	"changed this group's icon",
	"changed the group description",
	"this message was deleted",
	"deleted this message",
	"messages and calls are end-to-end encrypted",
}

// SenderGroup represents one sender's slice of a message batch
type SenderGroup struct {
	SenderID   string
	SenderName string
	Messages   []models.ChatMessage
	First      time.Time
	Last       time.Time
}

// FilterMessages drops empty-body messages and, when excludeSystem is
// set, messages whose body contains a known system-notice phrase.
// Relative order is preserved.
func FilterMessages(messages []models.ChatMessage, excludeSystem bool) []models.ChatMessage {
	filtered := make([]models.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Body) == "" {
			continue
		}
		if excludeSystem && isSystemMessage(msg.Body) {
			continue
		}
		filtered = append(filtered, msg)
	}
	return filtered
}

func isSystemMessage(body string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range systemPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// GroupBySender partitions messages by sender id. Every message lands in
// exactly one group; groups are ordered by message count descending, ties
// broken by first appearance in the batch.
func GroupBySender(messages []models.ChatMessage) []SenderGroup {
	index := make(map[string]int)
	groups := make([]SenderGroup, 0)

	for _, msg := range messages {
		i, ok := index[msg.SenderID]
		if !ok {
			i = len(groups)
			index[msg.SenderID] = i
			groups = append(groups, SenderGroup{
				SenderID:   msg.SenderID,
				SenderName: msg.SenderName,
				First:      msg.Timestamp,
				Last:       msg.Timestamp,
			})
		}

		g := &groups[i]
		g.Messages = append(g.Messages, msg)
		if g.SenderName == "" {
			g.SenderName = msg.SenderName
		}
		if msg.Timestamp.Before(g.First) {
			g.First = msg.Timestamp
		}
		if msg.Timestamp.After(g.Last) {
			g.Last = msg.Timestamp
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return len(groups[a].Messages) > len(groups[b].Messages)
	})

	return groups
}

// ExtractKeywords builds a merged unigram+bigram frequency table over the
// text and returns the top entries. Tokens of length <= 2 and stop words
// are excluded; bigrams require both tokens to be non-stop-words.
// Percentages are computed against the post-filter token count for
// unigrams and bigrams alike, so with bigrams present the percentages can
// sum past 100 (a known approximation of this heuristic, kept as-is).
// Equal counts keep first-seen order.
func ExtractKeywords(text string, minCount, maxKeywords int) []models.KeywordCount {
	tokens := tokenize(text)
	if len(tokens) == 0 || maxKeywords <= 0 {
		return []models.KeywordCount{}
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(tokens))

	record := func(key string) {
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	// Unigrams
	for _, tok := range tokens {
		if isStopWord(tok) {
			continue
		}
		record(tok)
	}

	// Bigrams over adjacent tokens
	for i := 0; i+1 < len(tokens); i++ {
		if isStopWord(tokens[i]) || isStopWord(tokens[i+1]) {
			continue
		}
		record(tokens[i] + " " + tokens[i+1])
	}

	total := len(tokens)
	keywords := make([]models.KeywordCount, 0, len(order))
	for _, key := range order {
		count := counts[key]
		if count < minCount {
			continue
		}
		keywords = append(keywords, models.KeywordCount{
			Keyword:    key,
			Count:      count,
			Percentage: roundPercent(count, total),
		})
	}

	sort.SliceStable(keywords, func(a, b int) bool {
		return keywords[a].Count > keywords[b].Count
	})

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// tokenize strips emoji, lowercases, removes punctuation and splits on
// whitespace, discarding tokens of length <= 2
func tokenize(text string) []string {
	cleaned := stripEmojis(text)
	cleaned = strings.ToLower(cleaned)

	var sb strings.Builder
	sb.Grow(len(cleaned))
	for _, r := range cleaned {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}

	fields := strings.Fields(sb.String())
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ExtractEmojis counts distinct emoji codepoints in text and returns the
// top entries. Percentages are against total emoji occurrences. Equal
// counts keep first-seen order.
func ExtractEmojis(text string, minCount, maxEmojis int) []models.EmojiCount {
	if maxEmojis <= 0 {
		return []models.EmojiCount{}
	}

	counts := make(map[rune]int)
	order := make([]rune, 0)
	total := 0

	for _, r := range text {
		if !isEmoji(r) {
			continue
		}
		if _, seen := counts[r]; !seen {
			order = append(order, r)
		}
		counts[r]++
		total++
	}

	emojis := make([]models.EmojiCount, 0, len(order))
	for _, r := range order {
		count := counts[r]
		if count < minCount {
			continue
		}
		emojis = append(emojis, models.EmojiCount{
			Emoji:      string(r),
			Count:      count,
			Percentage: roundPercent(count, total),
		})
	}

	sort.SliceStable(emojis, func(a, b int) bool {
		return emojis[a].Count > emojis[b].Count
	})

	if len(emojis) > maxEmojis {
		emojis = emojis[:maxEmojis]
	}
	return emojis
}

// ActivityPattern builds a 24-bucket hour-of-day histogram of message
// volume, with hours taken in loc (UTC when nil). The peak hour is the
// first bucket holding the maximum count.
func ActivityPattern(messages []models.ChatMessage, loc *time.Location) ([]int, int) {
	if loc == nil {
		loc = time.UTC
	}

	histogram := make([]int, HoursPerDay)
	for _, msg := range messages {
		histogram[msg.Timestamp.In(loc).Hour()]++
	}

	peak := 0
	for hour, count := range histogram {
		if count > histogram[peak] {
			peak = hour
		}
	}
	return histogram, peak
}

// TopActivityPeaks returns the topN busiest non-empty hours, ordered by
// volume descending with lower hours winning ties
func TopActivityPeaks(messages []models.ChatMessage, loc *time.Location, topN int) []models.HourActivity {
	histogram, _ := ActivityPattern(messages, loc)

	peaks := make([]models.HourActivity, 0, HoursPerDay)
	for hour, count := range histogram {
		if count > 0 {
			peaks = append(peaks, models.HourActivity{Hour: hour, Count: count})
		}
	}

	sort.SliceStable(peaks, func(a, b int) bool {
		return peaks[a].Count > peaks[b].Count
	})

	if len(peaks) > topN {
		peaks = peaks[:topN]
	}
	return peaks
}

// Engagement computes average body length, media message count and
// question count for a batch
func Engagement(messages []models.ChatMessage) models.EngagementMetrics {
	var metrics models.EngagementMetrics
	if len(messages) == 0 {
		return metrics
	}

	totalLength := 0
	for _, msg := range messages {
		totalLength += len([]rune(msg.Body))
		if msg.ContentType.IsMedia() {
			metrics.MediaCount++
		}
		if strings.Contains(msg.Body, "?") {
			metrics.QuestionCount++
		}
	}

	metrics.AvgMessageLength = int(math.Round(float64(totalLength) / float64(len(messages))))
	return metrics
}

// MessageTypeCounts tallies messages by content type
func MessageTypeCounts(messages []models.ChatMessage) map[string]int {
	counts := make(map[string]int)
	for _, msg := range messages {
		counts[msg.ContentType.String()]++
	}
	return counts
}

func roundPercent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}
