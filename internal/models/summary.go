package models

import "time"

// SummaryStatus represents the outcome of a summary generation
type SummaryStatus string

const (
	// SummaryCompleted means the summary was generated successfully
	SummaryCompleted SummaryStatus = "completed"

	// SummaryFailed means summary generation did not finish
	SummaryFailed SummaryStatus = "failed"
)

// KeywordCount represents one entry in a keyword frequency table
type KeywordCount struct {
	Keyword    string `json:"keyword"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// EmojiCount represents one entry in an emoji frequency table
type EmojiCount struct {
	Emoji      string `json:"emoji"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// HourActivity represents message volume for one hour-of-day bucket
type HourActivity struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// EngagementMetrics represents per-sender engagement statistics
type EngagementMetrics struct {
	AvgMessageLength int `json:"avg_message_length"`
	MediaCount       int `json:"media_count"`
	QuestionCount    int `json:"question_count"`
}

// SenderInsight represents aggregated statistics for one sender within a
// batch. It is built fresh on every summary generation and only persisted
// as part of its parent GroupSummary.
type SenderInsight struct {
	SenderID       string            `json:"sender_id"`
	SenderName     string            `json:"sender_name"`
	MessageCount   int               `json:"message_count"`
	Summary        string            `json:"summary"`
	TopKeywords    []KeywordCount    `json:"top_keywords"`
	TopEmojis      []EmojiCount      `json:"top_emojis"`
	HourlyActivity []int             `json:"hourly_activity"` // 24 buckets
	PeakHour       int               `json:"peak_hour"`
	Engagement     EngagementMetrics `json:"engagement"`
}

// GroupSummary represents the persisted daily summary document for one
// group. Uniqueness key: (group_id, owner_user_id, summary_date).
type GroupSummary struct {
	ID                 int64           `json:"id,omitempty"`
	GroupID            string          `json:"group_id"`
	GroupName          string          `json:"group_name"`
	OwnerUserID        string          `json:"owner_user_id"`
	SummaryDate        string          `json:"summary_date"` // YYYY-MM-DD in the schedule's timezone
	TimeRange          TimeRange       `json:"time_range"`
	TotalMessages      int             `json:"total_messages"`
	ActiveParticipants int             `json:"active_participants"`
	SenderInsights     []SenderInsight `json:"sender_insights"`
	OverallSummary     string          `json:"overall_summary"`
	TopKeywords        []KeywordCount  `json:"top_keywords"`
	TopEmojis          []EmojiCount    `json:"top_emojis"`
	ActivityPeaks      []HourActivity  `json:"activity_peaks"` // top 6 hours by volume
	MessageTypeCounts  map[string]int  `json:"message_type_counts"`
	GeneratedAt        time.Time       `json:"generated_at"`
	ProcessingTimeMs   int             `json:"processing_time_ms"`
	Status             SummaryStatus   `json:"status"`
}

// SummaryOptions controls summary generation. Boolean fields are pointers
// so that stored JSON options can distinguish "unset" from "false"; unset
// fields fall back to defaults when merged.
type SummaryOptions struct {
	MaxSummaryLength       int    `json:"max_summary_length,omitempty"`
	MaxSenderSummaryLength int    `json:"max_sender_summary_length,omitempty"`
	IncludeEmojis          *bool  `json:"include_emojis,omitempty"`
	IncludeKeywords        *bool  `json:"include_keywords,omitempty"`
	KeywordMinCount        int    `json:"keyword_min_count,omitempty"`
	EmojiMinCount          int    `json:"emoji_min_count,omitempty"`
	ExcludeSystemMessages  *bool  `json:"exclude_system_messages,omitempty"`
	Timezone               string `json:"timezone,omitempty"`
}

// Default summary option values
const (
	DefaultMaxSummaryLength       = 500
	DefaultMaxSenderSummaryLength = 60
	DefaultKeywordMinCount        = 2
	DefaultEmojiMinCount          = 2
	DefaultSummaryTimezone        = "UTC"
)

// Merged returns a copy of the options with every unset field replaced by
// its default. A nil receiver yields pure defaults.
func (o *SummaryOptions) Merged() SummaryOptions {
	truth := true
	merged := SummaryOptions{
		MaxSummaryLength:       DefaultMaxSummaryLength,
		MaxSenderSummaryLength: DefaultMaxSenderSummaryLength,
		IncludeEmojis:          &truth,
		IncludeKeywords:        &truth,
		KeywordMinCount:        DefaultKeywordMinCount,
		EmojiMinCount:          DefaultEmojiMinCount,
		ExcludeSystemMessages:  &truth,
		Timezone:               DefaultSummaryTimezone,
	}
	if o == nil {
		return merged
	}

	if o.MaxSummaryLength > 0 {
		merged.MaxSummaryLength = o.MaxSummaryLength
	}
	if o.MaxSenderSummaryLength > 0 {
		merged.MaxSenderSummaryLength = o.MaxSenderSummaryLength
	}
	if o.IncludeEmojis != nil {
		merged.IncludeEmojis = o.IncludeEmojis
	}
	if o.IncludeKeywords != nil {
		merged.IncludeKeywords = o.IncludeKeywords
	}
	if o.KeywordMinCount > 0 {
		merged.KeywordMinCount = o.KeywordMinCount
	}
	if o.EmojiMinCount > 0 {
		merged.EmojiMinCount = o.EmojiMinCount
	}
	if o.ExcludeSystemMessages != nil {
		merged.ExcludeSystemMessages = o.ExcludeSystemMessages
	}
	if o.Timezone != "" {
		merged.Timezone = o.Timezone
	}

	return merged
}

// GeneratedAtOrNow returns GeneratedAt, defaulting to now when zero
func (s *GroupSummary) GeneratedAtOrNow() time.Time {
	if s.GeneratedAt.IsZero() {
		return time.Now().UTC()
	}
	return s.GeneratedAt
}
