package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/whatsapp-summary-bot/internal/models"
)

// FindDueSchedules returns active schedules whose next_execution_at has
// passed, ascending by next_execution_at, capped at limit
func (c *Client) FindDueSchedules(ctx context.Context, now time.Time, limit int) ([]models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var schedules []models.Schedule

	err := c.withRetry(ctx, "find_due_schedules", func() error {
		// Call PostgreSQL function: filters on status = 'active' and
		// next_execution_at <= p_now, ordered ascending, limited
		data := c.client.Rpc("find_due_schedules", "", map[string]interface{}{
			"p_now":   now.UTC().Format(time.RFC3339),
			"p_limit": limit,
		})

		if data == "" {
			return fmt.Errorf("failed to find due schedules: RPC returned empty")
		}

		if err := json.Unmarshal([]byte(data), &schedules); err != nil {
			return fmt.Errorf("failed to parse due schedules: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("count", len(schedules)).
		Time("now", now).
		Msg("Retrieved due schedules")

	return schedules, nil
}

// GetSchedule retrieves a single schedule by id. Returns nil when the
// schedule does not exist. Used by the manual run-now path, which must
// work regardless of schedule status.
func (c *Client) GetSchedule(ctx context.Context, scheduleID int64) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var schedules []models.Schedule

	err := c.withRetry(ctx, "get_schedule", func() error {
		raw, _, err := c.client.From("summary_schedules").
			Select("*", "exact", false).
			Eq("id", fmt.Sprintf("%d", scheduleID)).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch schedule: %w", err)
		}

		if err := json.Unmarshal(raw, &schedules); err != nil {
			return fmt.Errorf("failed to unmarshal schedule: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("schedule_id", scheduleID).
			Msg("Failed to get schedule")
		return nil, err
	}

	if len(schedules) == 0 {
		return nil, nil
	}

	return &schedules[0], nil
}

// AppendExecutionHistory atomically prepends record to the schedule's
// history, truncating to maxHistoryLength entries (most recent first).
// The prepend and cap happen in a single PostgreSQL statement.
func (c *Client) AppendExecutionHistory(ctx context.Context, scheduleID int64, record models.ExecutionRecord, maxHistoryLength int) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.withRetry(ctx, "append_execution_history", func() error {
		data := c.client.Rpc("append_execution_history", "", map[string]interface{}{
			"p_schedule_id": scheduleID,
			"p_record":      record,
			"p_max_history": maxHistoryLength,
		})

		if data == "" {
			return fmt.Errorf("failed to append execution history: RPC returned empty")
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("schedule_id", scheduleID).
			Str("status", string(record.Status)).
			Msg("Failed to append execution history")
		return err
	}

	c.logger.Debug().
		Int64("schedule_id", scheduleID).
		Str("status", string(record.Status)).
		Int("group_results", len(record.GroupResults)).
		Msg("Execution history appended")

	return nil
}

// UpdateAfterExecution applies the post-execution bookkeeping fields as a
// single row update. The status field is only written when the update
// carries one (auto-pause).
func (c *Client) UpdateAfterExecution(ctx context.Context, scheduleID int64, update models.ExecutionUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.withRetry(ctx, "update_after_execution", func() error {
		data := map[string]interface{}{
			"last_execution_at":     update.LastExecutionAt,
			"last_execution_status": update.LastExecutionStatus,
			"next_execution_at":     update.NextExecutionAt,
			"fail_count":            update.FailCount,
			"consecutive_failures":  update.ConsecutiveFailures,
			"updated_at":            time.Now().UTC(),
		}
		if update.Status != "" {
			data["status"] = update.Status
		}

		_, _, err := c.client.From("summary_schedules").
			Update(data, "", "").
			Eq("id", fmt.Sprintf("%d", scheduleID)).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("schedule_id", scheduleID).
			Msg("Failed to update schedule after execution")
		return err
	}

	c.logger.Debug().
		Int64("schedule_id", scheduleID).
		Str("last_status", string(update.LastExecutionStatus)).
		Time("next_execution_at", update.NextExecutionAt).
		Msg("Schedule bookkeeping updated")

	return nil
}
