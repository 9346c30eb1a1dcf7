package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/whatsapp-summary-bot/internal/models"
	"github.com/whatsapp-summary-bot/internal/summary"
)

type fakeScheduleStore struct {
	due       []models.Schedule
	byID      map[int64]*models.Schedule
	findErr   error
	findCalls int
	history   []models.ExecutionRecord
	updates   []models.ExecutionUpdate
}

func (f *fakeScheduleStore) FindDueSchedules(_ context.Context, _ time.Time, _ int) ([]models.Schedule, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.due, nil
}

func (f *fakeScheduleStore) GetSchedule(_ context.Context, id int64) (*models.Schedule, error) {
	return f.byID[id], nil
}

func (f *fakeScheduleStore) AppendExecutionHistory(_ context.Context, _ int64, record models.ExecutionRecord, _ int) error {
	f.history = append(f.history, record)
	return nil
}

func (f *fakeScheduleStore) UpdateAfterExecution(_ context.Context, _ int64, update models.ExecutionUpdate) error {
	f.updates = append(f.updates, update)
	return nil
}

type fakeSummaryStore struct {
	upserts []*models.GroupSummary
	failFor map[string]error
	nextID  int64
}

func (f *fakeSummaryStore) UpsertGroupSummary(_ context.Context, doc *models.GroupSummary) (int64, error) {
	if err, ok := f.failFor[doc.GroupID]; ok {
		return 0, err
	}
	f.nextID++
	f.upserts = append(f.upserts, doc)
	return f.nextID, nil
}

type fakeProvider struct {
	messages map[string][]models.ChatMessage
	errors   map[string]error
	groups   []models.GroupInfo
	groupErr error
}

func (f *fakeProvider) GetMessages(_ context.Context, groupID string, _ int) ([]models.ChatMessage, error) {
	if err, ok := f.errors[groupID]; ok {
		return nil, err
	}
	return f.messages[groupID], nil
}

func (f *fakeProvider) GetGroups(_ context.Context) ([]models.GroupInfo, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return f.groups, nil
}

type fakeNotifier struct {
	calls     int
	summaries int
}

func (f *fakeNotifier) NotifyExecution(_ context.Context, _ *models.Schedule, _ models.ExecutionRecord, summaries []*models.GroupSummary) error {
	f.calls++
	f.summaries += len(summaries)
	return nil
}

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testSchedule(groups ...models.TargetGroup) models.Schedule {
	return models.Schedule{
		ID:           1,
		OwnerUserID:  "user-1",
		TargetGroups: groups,
		RunAt:        "09:00",
		Timezone:     "UTC",
		Frequency:    "daily",
		Status:       models.ScheduleActive,
		MaxRetries:   3,
	}
}

func windowMessage(id, sender string, offset time.Duration) models.ChatMessage {
	return models.ChatMessage{
		ID:          id,
		Body:        "let's plan the raid for tonight, raid at nine",
		SenderID:    sender,
		SenderName:  sender,
		Timestamp:   testNow.Add(offset),
		ContentType: models.ContentText,
	}
}

func newTestRunner(store *fakeScheduleStore, summaries *fakeSummaryStore, provider *fakeProvider, notifier Notifier) *Runner {
	gen := summary.NewGenerator(nil, zerolog.Nop())
	r := NewRunner(store, summaries, provider, gen, notifier, Config{
		PollInterval:     time.Minute,
		BatchLimit:       10,
		FetchLimit:       1000,
		MaxHistoryLength: 50,
	}, zerolog.Nop())
	r.nowFn = func() time.Time { return testNow }
	return r
}

func TestExecuteSchedule_SkippedGroupDoesNotDemoteSuccess(t *testing.T) {
	store := &fakeScheduleStore{}
	summaries := &fakeSummaryStore{}
	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{
			"groupA": {windowMessage("1", "alice", -time.Hour), windowMessage("2", "bob", -30*time.Minute)},
			"groupB": {},
		},
	}
	runner := newTestRunner(store, summaries, provider, nil)

	sched := testSchedule(
		models.TargetGroup{GroupID: "groupA", GroupName: "Group A"},
		models.TargetGroup{GroupID: "groupB", GroupName: "Group B"},
	)
	record, err := runner.executeSchedule(context.Background(), &sched, false)
	if err != nil {
		t.Fatalf("executeSchedule failed: %v", err)
	}

	if record.Status != models.ExecutionSuccess {
		t.Errorf("Expected overall success with one skipped group, got %s", record.Status)
	}
	if record.GroupResults[0].Status != models.GroupResultSuccess || record.GroupResults[0].SummaryID == 0 {
		t.Errorf("Expected group A success with summary id, got %+v", record.GroupResults[0])
	}
	if record.GroupResults[1].Status != models.GroupResultSkipped {
		t.Errorf("Expected group B skipped, got %+v", record.GroupResults[1])
	}
	if record.GroupResults[1].Error != skipReasonNoMessages {
		t.Errorf("Expected skip reason %q, got %q", skipReasonNoMessages, record.GroupResults[1].Error)
	}
}

func TestExecuteSchedule_MixedResultsArePartial(t *testing.T) {
	store := &fakeScheduleStore{}
	summaries := &fakeSummaryStore{failFor: map[string]error{"groupB": errors.New("upsert rejected")}}
	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{
			"groupA": {windowMessage("1", "alice", -time.Hour)},
			"groupB": {windowMessage("2", "bob", -time.Hour)},
		},
	}
	runner := newTestRunner(store, summaries, provider, nil)

	sched := testSchedule(
		models.TargetGroup{GroupID: "groupA", GroupName: "A"},
		models.TargetGroup{GroupID: "groupB", GroupName: "B"},
	)
	record, _ := runner.executeSchedule(context.Background(), &sched, false)

	if record.Status != models.ExecutionPartial {
		t.Errorf("Expected partial status, got %s", record.Status)
	}
	if record.GroupResults[1].Error != "upsert rejected" {
		t.Errorf("Expected captured error message, got %q", record.GroupResults[1].Error)
	}

	// Partial counts as a failure for the consecutive counter
	if len(store.updates) != 1 || store.updates[0].ConsecutiveFailures != 1 {
		t.Errorf("Expected consecutive failures 1, got %+v", store.updates)
	}
	if store.updates[0].FailCount != 1 {
		t.Errorf("Expected fail count 1, got %d", store.updates[0].FailCount)
	}
}

func TestExecuteSchedule_AllFailedAutoPausesAtMaxRetries(t *testing.T) {
	store := &fakeScheduleStore{}
	summaries := &fakeSummaryStore{}
	provider := &fakeProvider{errors: map[string]error{"groupA": errors.New("provider down")}}
	runner := newTestRunner(store, summaries, provider, nil)

	sched := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	sched.FailCount = 7
	sched.ConsecutiveFailures = 2 // third consecutive failure incoming

	record, _ := runner.executeSchedule(context.Background(), &sched, false)

	if record.Status != models.ExecutionFailed {
		t.Errorf("Expected failed status, got %s", record.Status)
	}

	update := store.updates[0]
	if update.ConsecutiveFailures != 3 || update.FailCount != 8 {
		t.Errorf("Expected counters (3, 8), got (%d, %d)", update.ConsecutiveFailures, update.FailCount)
	}
	if update.Status != models.SchedulePaused {
		t.Errorf("Expected auto-pause at maxRetries, got status %q", update.Status)
	}
}

func TestExecuteSchedule_NoAutoPauseWhenRetriesUnlimited(t *testing.T) {
	store := &fakeScheduleStore{}
	provider := &fakeProvider{errors: map[string]error{"groupA": errors.New("provider down")}}
	runner := newTestRunner(store, &fakeSummaryStore{}, provider, nil)

	sched := testSchedule(models.TargetGroup{GroupID: "groupA"})
	sched.MaxRetries = 0
	sched.ConsecutiveFailures = 99

	runner.executeSchedule(context.Background(), &sched, false)

	if store.updates[0].Status != "" {
		t.Errorf("Expected no pause with maxRetries 0, got %q", store.updates[0].Status)
	}
}

func TestExecuteSchedule_SuccessResetsConsecutiveFailures(t *testing.T) {
	store := &fakeScheduleStore{}
	summaries := &fakeSummaryStore{}
	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{"groupA": {windowMessage("1", "alice", -time.Hour)}},
	}
	runner := newTestRunner(store, summaries, provider, nil)

	sched := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	sched.FailCount = 4
	sched.ConsecutiveFailures = 2

	runner.executeSchedule(context.Background(), &sched, false)

	update := store.updates[0]
	if update.ConsecutiveFailures != 0 {
		t.Errorf("Expected consecutive failures reset to 0, got %d", update.ConsecutiveFailures)
	}
	if update.FailCount != 4 {
		t.Errorf("Expected total fail count untouched by success, got %d", update.FailCount)
	}
	if update.Status != "" {
		t.Errorf("Expected no status change on success, got %q", update.Status)
	}
}

func TestExecuteSchedule_NextExecutionComputedPastStart(t *testing.T) {
	store := &fakeScheduleStore{}
	provider := &fakeProvider{messages: map[string][]models.ChatMessage{}}
	runner := newTestRunner(store, &fakeSummaryStore{}, provider, nil)

	// runAt 09:00 UTC, executing at 10:00 UTC -> next run tomorrow 09:00
	sched := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	runner.executeSchedule(context.Background(), &sched, false)

	want := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	if !store.updates[0].NextExecutionAt.Equal(want) {
		t.Errorf("Expected next execution %v, got %v", want, store.updates[0].NextExecutionAt)
	}
	if !store.updates[0].LastExecutionAt.Equal(testNow) {
		t.Errorf("Expected last execution at %v, got %v", testNow, store.updates[0].LastExecutionAt)
	}
}

func TestExecuteSchedule_FiltersSelfAndOutOfWindowMessages(t *testing.T) {
	store := &fakeScheduleStore{}
	summaries := &fakeSummaryStore{}

	selfMsg := windowMessage("self", "me", -time.Hour)
	selfMsg.IsFromSelf = true
	yesterday := windowMessage("old", "alice", -20*time.Hour) // 2024-02-29 local

	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{
			"groupA": {selfMsg, yesterday, windowMessage("1", "alice", -time.Hour)},
		},
	}
	runner := newTestRunner(store, summaries, provider, nil)

	sched := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	runner.executeSchedule(context.Background(), &sched, false)

	if len(summaries.upserts) != 1 {
		t.Fatalf("Expected one upserted summary, got %d", len(summaries.upserts))
	}
	doc := summaries.upserts[0]
	if doc.TotalMessages != 1 {
		t.Errorf("Expected 1 qualifying message, got %d", doc.TotalMessages)
	}
	if doc.OwnerUserID != "user-1" {
		t.Errorf("Expected owner stamped on summary, got %q", doc.OwnerUserID)
	}
	if doc.SummaryDate != "2024-03-01" {
		t.Errorf("Expected summary date 2024-03-01, got %q", doc.SummaryDate)
	}
}

func TestExecuteSchedule_GroupNameFallsBackToID(t *testing.T) {
	store := &fakeScheduleStore{}
	summaries := &fakeSummaryStore{}
	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{"g1@g.us": {windowMessage("1", "alice", -time.Hour)}},
		groupErr: errors.New("directory down"),
	}
	runner := newTestRunner(store, summaries, provider, nil)

	sched := testSchedule(models.TargetGroup{GroupID: "g1@g.us"}) // no stored name
	record, _ := runner.executeSchedule(context.Background(), &sched, false)

	if record.Status != models.ExecutionSuccess {
		t.Errorf("Directory failure must not block generation, got %s", record.Status)
	}
	if record.GroupResults[0].GroupName != "g1@g.us" {
		t.Errorf("Expected group id fallback name, got %q", record.GroupResults[0].GroupName)
	}
}

func TestRunNow_ExecutesPausedSchedule(t *testing.T) {
	sched := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	sched.Status = models.SchedulePaused

	store := &fakeScheduleStore{byID: map[int64]*models.Schedule{1: &sched}}
	summaries := &fakeSummaryStore{}
	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{"groupA": {windowMessage("1", "alice", -time.Hour)}},
	}
	runner := newTestRunner(store, summaries, provider, nil)

	record, err := runner.RunNow(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if record.Status != models.ExecutionSuccess {
		t.Errorf("Expected manual run to succeed on paused schedule, got %s", record.Status)
	}
	if len(summaries.upserts) != 1 {
		t.Errorf("Expected summary persisted by manual run, got %d", len(summaries.upserts))
	}
}

func TestRunNow_UnknownSchedule(t *testing.T) {
	store := &fakeScheduleStore{byID: map[int64]*models.Schedule{}}
	runner := newTestRunner(store, &fakeSummaryStore{}, &fakeProvider{}, nil)

	if _, err := runner.RunNow(context.Background(), 42); err == nil {
		t.Fatal("Expected error for unknown schedule")
	}
}

func TestPollOnce_ExecutesWholeBatchDespiteFailures(t *testing.T) {
	schedA := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	schedB := testSchedule(models.TargetGroup{GroupID: "groupB", GroupName: "B"})
	schedB.ID = 2

	store := &fakeScheduleStore{due: []models.Schedule{schedA, schedB}}
	summaries := &fakeSummaryStore{}
	provider := &fakeProvider{
		errors:   map[string]error{"groupA": errors.New("provider down")},
		messages: map[string][]models.ChatMessage{"groupB": {windowMessage("1", "bob", -time.Hour)}},
	}
	runner := newTestRunner(store, summaries, provider, nil)

	runner.pollOnce(context.Background())

	if len(store.updates) != 2 {
		t.Fatalf("Expected both schedules to complete bookkeeping, got %d", len(store.updates))
	}
	if len(store.history) != 2 {
		t.Errorf("Expected two history records, got %d", len(store.history))
	}
	if store.history[0].Status != models.ExecutionFailed || store.history[1].Status != models.ExecutionSuccess {
		t.Errorf("Unexpected history statuses: %s, %s", store.history[0].Status, store.history[1].Status)
	}
}

func TestPollOnce_SkipsTickWhileCycleRunning(t *testing.T) {
	store := &fakeScheduleStore{}
	runner := newTestRunner(store, &fakeSummaryStore{}, &fakeProvider{}, nil)

	runner.running.Store(true)
	runner.pollOnce(context.Background())

	if store.findCalls != 0 {
		t.Errorf("Expected tick skipped while a cycle runs, got %d due-queries", store.findCalls)
	}
	if !runner.running.Load() {
		t.Error("Skipped tick must not clear the running guard")
	}
}

func TestPollOnce_DueQueryFailureEndsCycleQuietly(t *testing.T) {
	store := &fakeScheduleStore{findErr: errors.New("connection refused")}
	runner := newTestRunner(store, &fakeSummaryStore{}, &fakeProvider{}, nil)

	runner.pollOnce(context.Background())

	if len(store.updates) != 0 {
		t.Errorf("Expected no executions after query failure, got %d", len(store.updates))
	}
	if runner.running.Load() {
		t.Error("Guard must be released after a failed cycle")
	}
}

func TestExecuteSchedule_NotifierReceivesGeneratedSummaries(t *testing.T) {
	store := &fakeScheduleStore{}
	summaries := &fakeSummaryStore{}
	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{
			"groupA": {windowMessage("1", "alice", -time.Hour)},
			"groupB": {},
		},
	}
	notifier := &fakeNotifier{}
	runner := newTestRunner(store, summaries, provider, notifier)

	sched := testSchedule(
		models.TargetGroup{GroupID: "groupA", GroupName: "A"},
		models.TargetGroup{GroupID: "groupB", GroupName: "B"},
	)
	runner.executeSchedule(context.Background(), &sched, false)

	if notifier.calls != 1 || notifier.summaries != 1 {
		t.Errorf("Expected one notification with one summary, got %d calls / %d summaries",
			notifier.calls, notifier.summaries)
	}
}

func TestExecuteSchedule_DurationFollowsInjectedClock(t *testing.T) {
	store := &fakeScheduleStore{}
	provider := &fakeProvider{
		messages: map[string][]models.ChatMessage{"groupA": {windowMessage("1", "alice", -time.Hour)}},
	}
	runner := newTestRunner(store, &fakeSummaryStore{}, provider, nil)

	sched := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	record, _ := runner.executeSchedule(context.Background(), &sched, false)

	// The clock is pinned, so measured duration must be exactly zero
	if record.DurationMs != 0 {
		t.Errorf("Expected zero duration under a fixed clock, got %d", record.DurationMs)
	}
}

func TestExecuteSchedule_NoNotificationWithoutSummaries(t *testing.T) {
	store := &fakeScheduleStore{}
	provider := &fakeProvider{messages: map[string][]models.ChatMessage{"groupA": {}}}
	notifier := &fakeNotifier{}
	runner := newTestRunner(store, &fakeSummaryStore{}, provider, notifier)

	sched := testSchedule(models.TargetGroup{GroupID: "groupA", GroupName: "A"})
	runner.executeSchedule(context.Background(), &sched, false)

	if notifier.calls != 0 {
		t.Errorf("Expected no notification for all-skipped execution, got %d", notifier.calls)
	}
}
