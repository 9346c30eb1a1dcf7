package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/whatsapp-summary-bot/internal/models"
)

// UpsertGroupSummary stores a group summary, overwriting any existing row
// for the same (group_id, owner_user_id, summary_date) key. Returns the
// stored row's id.
func (c *Client) UpsertGroupSummary(ctx context.Context, summary *models.GroupSummary) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stored []models.GroupSummary

	operation := "upsert_group_summary"
	err := c.withRetry(ctx, operation, func() error {
		data := map[string]interface{}{
			"group_id":            summary.GroupID,
			"group_name":          summary.GroupName,
			"owner_user_id":       summary.OwnerUserID,
			"summary_date":        summary.SummaryDate,
			"time_range":          summary.TimeRange,
			"total_messages":      summary.TotalMessages,
			"active_participants": summary.ActiveParticipants,
			"sender_insights":     summary.SenderInsights,
			"overall_summary":     summary.OverallSummary,
			"top_keywords":        summary.TopKeywords,
			"top_emojis":          summary.TopEmojis,
			"activity_peaks":      summary.ActivityPeaks,
			"message_type_counts": summary.MessageTypeCounts,
			"generated_at":        summary.GeneratedAtOrNow(),
			"processing_time_ms":  summary.ProcessingTimeMs,
			"status":              summary.Status,
		}

		raw, _, err := c.client.From("group_summaries").
			Insert(data, true, "group_id,owner_user_id,summary_date", "representation", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to upsert group summary: %w", err)
		}

		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("failed to unmarshal upserted summary: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("group_id", summary.GroupID).
			Str("owner_user_id", summary.OwnerUserID).
			Str("summary_date", summary.SummaryDate).
			Msg("Failed to upsert group summary")
		return 0, err
	}

	var id int64
	if len(stored) > 0 {
		id = stored[0].ID
	}

	c.logger.Info().
		Str("group_id", summary.GroupID).
		Str("summary_date", summary.SummaryDate).
		Int("total_messages", summary.TotalMessages).
		Int64("summary_id", id).
		Msg("Group summary saved")

	return id, nil
}

// GetGroupSummary retrieves one group summary by its composite key.
// Returns nil when no summary exists for the key.
func (c *Client) GetGroupSummary(ctx context.Context, groupID, ownerUserID, summaryDate string) (*models.GroupSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var summaries []models.GroupSummary

	operation := "get_group_summary"
	err := c.withRetry(ctx, operation, func() error {
		raw, _, err := c.client.From("group_summaries").
			Select("*", "exact", false).
			Eq("group_id", groupID).
			Eq("owner_user_id", ownerUserID).
			Eq("summary_date", summaryDate).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch group summary: %w", err)
		}

		if err := json.Unmarshal(raw, &summaries); err != nil {
			return fmt.Errorf("failed to unmarshal group summary: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("group_id", groupID).
			Str("summary_date", summaryDate).
			Msg("Failed to get group summary")
		return nil, err
	}

	if len(summaries) == 0 {
		return nil, nil
	}

	return &summaries[0], nil
}
