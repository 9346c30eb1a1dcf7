// Package scheduler runs persisted summary schedules: a polling loop
// finds due schedules, fetches each target group's messages for the
// current local day, generates and persists summaries, and reschedules
// the next run.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/whatsapp-summary-bot/internal/models"
)

// skipReasonNoMessages is recorded on a group result when the execution
// window holds no qualifying messages
const skipReasonNoMessages = "No messages found for the time period"

// ScheduleStore persists schedules and their execution bookkeeping
type ScheduleStore interface {
	FindDueSchedules(ctx context.Context, now time.Time, limit int) ([]models.Schedule, error)
	GetSchedule(ctx context.Context, scheduleID int64) (*models.Schedule, error)
	AppendExecutionHistory(ctx context.Context, scheduleID int64, record models.ExecutionRecord, maxHistoryLength int) error
	UpdateAfterExecution(ctx context.Context, scheduleID int64, update models.ExecutionUpdate) error
}

// SummaryStore persists generated group summaries
type SummaryStore interface {
	UpsertGroupSummary(ctx context.Context, summary *models.GroupSummary) (int64, error)
}

// MessageProvider fetches messages and group metadata from the external
// WhatsApp provider
type MessageProvider interface {
	GetMessages(ctx context.Context, groupID string, limit int) ([]models.ChatMessage, error)
	GetGroups(ctx context.Context) ([]models.GroupInfo, error)
}

// SummaryGenerator builds a summary document from a message batch
type SummaryGenerator interface {
	Generate(ctx context.Context, groupID, groupName string, messages []models.ChatMessage, timeRange models.TimeRange, options *models.SummaryOptions) *models.GroupSummary
}

// Notifier delivers a finished execution's digest. Failures must be
// tolerated: the runner logs them and never lets them affect execution
// status.
type Notifier interface {
	NotifyExecution(ctx context.Context, schedule *models.Schedule, record models.ExecutionRecord, summaries []*models.GroupSummary) error
}

// Config holds runner tuning knobs
type Config struct {
	PollInterval     time.Duration
	BatchLimit       int
	FetchLimit       int
	MaxHistoryLength int
}

// Runner executes due schedules. One polling cycle runs at a time
// process-wide; a cycle that overruns the poll interval causes later
// ticks to be skipped, not queued. The guard is process-local only:
// running multiple instances of this worker would duplicate executions.
type Runner struct {
	schedules ScheduleStore
	summaries SummaryStore
	provider  MessageProvider
	generator SummaryGenerator
	notifier  Notifier
	config    Config
	logger    zerolog.Logger

	cron    *cron.Cron
	running atomic.Bool // re-entrancy guard for the polling cycle
	nowFn   func() time.Time
}

// NewRunner creates a new schedule runner. notifier may be nil.
func NewRunner(
	schedules ScheduleStore,
	summaries SummaryStore,
	provider MessageProvider,
	generator SummaryGenerator,
	notifier Notifier,
	config Config,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		schedules: schedules,
		summaries: summaries,
		provider:  provider,
		generator: generator,
		notifier:  notifier,
		config:    config,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		nowFn:     time.Now,
	}
}

// Start begins the polling loop. It returns immediately; polling stops
// when Stop is called or ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.cron = cron.New()

	spec := fmt.Sprintf("@every %s", r.config.PollInterval)
	if _, err := r.cron.AddFunc(spec, func() { r.pollOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to register poll job: %w", err)
	}

	r.cron.Start()
	r.logger.Info().
		Dur("poll_interval", r.config.PollInterval).
		Int("batch_limit", r.config.BatchLimit).
		Msg("Schedule runner started")

	go func() {
		<-ctx.Done()
		r.cron.Stop()
	}()

	return nil
}

// Stop halts the polling loop. In-flight executions run to completion.
func (r *Runner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.logger.Info().Msg("Schedule runner stopped")
}

// pollOnce runs one polling cycle: query due schedules and execute them
// sequentially. If a previous cycle is still running the tick is skipped
// entirely.
func (r *Runner) pollOnce(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Debug().Msg("Previous polling cycle still running, skipping tick")
		return
	}
	defer r.running.Store(false)

	now := r.nowFn().UTC()
	due, err := r.schedules.FindDueSchedules(ctx, now, r.config.BatchLimit)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to query due schedules, ending cycle")
		return
	}

	if len(due) == 0 {
		return
	}

	r.logger.Info().
		Int("count", len(due)).
		Msg("Executing due schedules")

	for i := range due {
		schedule := &due[i]
		// A failing schedule must not block the rest of the batch
		if _, err := r.executeSchedule(ctx, schedule, false); err != nil {
			r.logger.Error().
				Err(err).
				Int64("schedule_id", schedule.ID).
				Msg("Schedule execution failed")
		}
	}
}

// RunNow executes a schedule immediately, bypassing the due-time and
// status checks. Paused schedules may be run manually.
func (r *Runner) RunNow(ctx context.Context, scheduleID int64) (models.ExecutionRecord, error) {
	schedule, err := r.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return models.ExecutionRecord{}, fmt.Errorf("failed to load schedule %d: %w", scheduleID, err)
	}
	if schedule == nil {
		return models.ExecutionRecord{}, fmt.Errorf("schedule %d not found", scheduleID)
	}

	r.logger.Info().
		Int64("schedule_id", scheduleID).
		Str("status", string(schedule.Status)).
		Msg("Manual execution requested")

	return r.executeSchedule(ctx, schedule, true)
}

// executeSchedule runs one schedule: per-group fetch, generate, upsert,
// then history append and bookkeeping. Per-group failures are isolated
// into the group result; the returned error covers only schedule-level
// problems that prevented the execution from being recorded.
func (r *Runner) executeSchedule(ctx context.Context, schedule *models.Schedule, manual bool) (models.ExecutionRecord, error) {
	startedAt := r.nowFn().UTC()
	logger := r.logger.With().
		Int64("schedule_id", schedule.ID).
		Bool("manual", manual).
		Logger()

	window, summaryDate, err := ExecutionWindow(schedule.Timezone, startedAt)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("timezone", schedule.Timezone).
			Msg("Invalid schedule timezone, using UTC window")
		window, summaryDate, _ = ExecutionWindow("UTC", startedAt)
	}

	logger.Info().
		Time("window_start", window.Start).
		Time("window_end", window.End).
		Str("summary_date", summaryDate).
		Int("groups", len(schedule.TargetGroups)).
		Msg("Executing schedule")

	results := make([]models.GroupResult, 0, len(schedule.TargetGroups))
	generated := make([]*models.GroupSummary, 0, len(schedule.TargetGroups))

	for _, target := range schedule.TargetGroups {
		result, doc := r.executeGroup(ctx, schedule, target, window, summaryDate)
		results = append(results, result)
		if doc != nil {
			generated = append(generated, doc)
		}
	}

	status := models.OverallStatus(results)
	record := models.ExecutionRecord{
		ExecutedAt:   startedAt,
		DurationMs:   int(r.nowFn().UTC().Sub(startedAt).Milliseconds()),
		Status:       status,
		GroupResults: results,
	}

	if err := r.schedules.AppendExecutionHistory(ctx, schedule.ID, record, r.config.MaxHistoryLength); err != nil {
		logger.Error().Err(err).Msg("Failed to append execution history")
	}

	r.updateBookkeeping(ctx, schedule, record, logger)

	if r.notifier != nil && len(generated) > 0 {
		if err := r.notifier.NotifyExecution(ctx, schedule, record, generated); err != nil {
			logger.Error().Err(err).Msg("Failed to deliver execution digest")
		}
	}

	logger.Info().
		Str("status", string(status)).
		Int("duration_ms", record.DurationMs).
		Msg("Schedule execution finished")

	return record, nil
}

// executeGroup handles one target group of an execution. All failures
// are captured into the result; nothing propagates.
func (r *Runner) executeGroup(
	ctx context.Context,
	schedule *models.Schedule,
	target models.TargetGroup,
	window models.TimeRange,
	summaryDate string,
) (models.GroupResult, *models.GroupSummary) {
	groupName := r.resolveGroupName(ctx, target)
	result := models.GroupResult{
		GroupID:   target.GroupID,
		GroupName: groupName,
	}

	messages, err := r.provider.GetMessages(ctx, target.GroupID, r.config.FetchLimit)
	if err != nil {
		result.Status = models.GroupResultFailed
		result.Error = err.Error()
		r.logger.Error().
			Err(err).
			Int64("schedule_id", schedule.ID).
			Str("group_id", target.GroupID).
			Msg("Failed to fetch group messages")
		return result, nil
	}

	qualifying := filterWindow(messages, window)
	if len(qualifying) == 0 {
		result.Status = models.GroupResultSkipped
		result.Error = skipReasonNoMessages
		r.logger.Info().
			Int64("schedule_id", schedule.ID).
			Str("group_id", target.GroupID).
			Msg("No messages in execution window, skipping group")
		return result, nil
	}

	doc := r.generator.Generate(ctx, target.GroupID, groupName, qualifying, window, schedule.SummaryOptions)
	doc.OwnerUserID = schedule.OwnerUserID
	doc.SummaryDate = summaryDate

	summaryID, err := r.summaries.UpsertGroupSummary(ctx, doc)
	if err != nil {
		result.Status = models.GroupResultFailed
		result.Error = err.Error()
		r.logger.Error().
			Err(err).
			Int64("schedule_id", schedule.ID).
			Str("group_id", target.GroupID).
			Msg("Failed to persist group summary")
		return result, nil
	}

	doc.ID = summaryID
	result.Status = models.GroupResultSuccess
	result.SummaryID = summaryID
	return result, doc
}

// updateBookkeeping computes and persists the schedule's post-execution
// state: next run time, failure counters and auto-pause
func (r *Runner) updateBookkeeping(ctx context.Context, schedule *models.Schedule, record models.ExecutionRecord, logger zerolog.Logger) {
	// One second past the start so the schedule is not immediately due
	// again
	next, err := NextExecution(schedule.RunAt, schedule.Timezone, record.ExecutedAt.Add(time.Second))
	if err != nil {
		logger.Warn().
			Err(err).
			Str("run_at", schedule.RunAt).
			Msg("Failed to compute next execution, deferring 24h")
		next = record.ExecutedAt.Add(24 * time.Hour)
	}

	update := models.ExecutionUpdate{
		LastExecutionAt:     record.ExecutedAt,
		LastExecutionStatus: record.Status,
		NextExecutionAt:     next.UTC(),
		FailCount:           schedule.FailCount,
		ConsecutiveFailures: schedule.ConsecutiveFailures,
	}

	if record.Status == models.ExecutionSuccess {
		update.ConsecutiveFailures = 0
	} else {
		update.FailCount++
		update.ConsecutiveFailures++
		if schedule.MaxRetries > 0 && update.ConsecutiveFailures >= schedule.MaxRetries {
			update.Status = models.SchedulePaused
			logger.Warn().
				Int("consecutive_failures", update.ConsecutiveFailures).
				Int("max_retries", schedule.MaxRetries).
				Msg("Auto-pausing schedule after repeated failures")
		}
	}

	if err := r.schedules.UpdateAfterExecution(ctx, schedule.ID, update); err != nil {
		logger.Error().Err(err).Msg("Failed to update schedule bookkeeping")
	}
}

// resolveGroupName prefers the name stored on the schedule, then the
// provider's directory, then the raw group id. Directory failures never
// block execution.
func (r *Runner) resolveGroupName(ctx context.Context, target models.TargetGroup) string {
	if target.GroupName != "" {
		return target.GroupName
	}

	groups, err := r.provider.GetGroups(ctx)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("group_id", target.GroupID).
			Msg("Group directory unavailable, using group id as name")
		return target.GroupID
	}

	for _, g := range groups {
		if g.ID == target.GroupID {
			return g.Name
		}
	}
	return target.GroupID
}

// filterWindow keeps messages inside the window, drops self-authored
// ones and sorts chronologically
func filterWindow(messages []models.ChatMessage, window models.TimeRange) []models.ChatMessage {
	qualifying := make([]models.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.IsFromSelf {
			continue
		}
		if !window.Contains(msg.Timestamp) {
			continue
		}
		qualifying = append(qualifying, msg)
	}

	sort.SliceStable(qualifying, func(a, b int) bool {
		return qualifying[a].Timestamp.Before(qualifying[b].Timestamp)
	})

	return qualifying
}
