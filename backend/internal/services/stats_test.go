package services_test

import (
	"testing"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/models"
	"github.com/Jancy0713/jancy-template-end/backend/internal/services"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

func seedTask(t *testing.T, db *gorm.DB, owner uuid.UUID, status, priority string, due, completed *time.Time) models.Task {
	t.Helper()
	task := models.Task{
		UserID:      owner,
		Title:       "seed",
		Status:      status,
		Priority:    priority,
		DueDate:     due,
		CompletedAt: completed,
		SortOrder:   1,
	}
	if err := db.Create(&task).Error; err != nil {
		t.Fatalf("failed to seed task: %v", err)
	}
	return task
}

func TestGetStats_CountsAndOverdue(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewStatsService()

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)
	now := time.Now()

	seedTask(t, db, owner, models.StatusPending, models.PriorityHigh, &past, nil)        // overdue
	seedTask(t, db, owner, models.StatusInProgress, models.PriorityMedium, &past, nil)   // overdue
	seedTask(t, db, owner, models.StatusCompleted, models.PriorityLow, &past, &now)      // past due but completed
	seedTask(t, db, owner, models.StatusPending, models.PriorityMedium, &future, nil)    // not yet due
	seedTask(t, db, owner, models.StatusPending, models.PriorityLow, nil, nil)           // no deadline

	stats, err := svc.GetStats(db, owner)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats.Total != 5 {
		t.Errorf("Expected total=5, got %d", stats.Total)
	}
	if stats.Pending != 3 || stats.InProgress != 1 || stats.Completed != 1 {
		t.Errorf("Expected pending=3 inProgress=1 completed=1, got %d/%d/%d",
			stats.Pending, stats.InProgress, stats.Completed)
	}
	// A completed task is never overdue, whatever its deadline was.
	if stats.Overdue != 2 {
		t.Errorf("Expected overdue=2, got %d", stats.Overdue)
	}
}

func TestGetStats_TagDistributionSortedByCountDesc(t *testing.T) {
	db, owner := setupTestDB(t)
	taskSvc := services.NewTaskService()
	svc := services.NewStatsService()

	mustCreateTask(t, db, taskSvc, owner, services.CreateTaskInput{Title: "a", TagNames: []string{"busy", "rare"}})
	mustCreateTask(t, db, taskSvc, owner, services.CreateTaskInput{Title: "b", TagNames: []string{"busy"}})
	mustCreateTask(t, db, taskSvc, owner, services.CreateTaskInput{Title: "c", TagNames: []string{"busy"}})
	if _, err := services.NewTagService().CreateTag(db, owner, "unused", ""); err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}

	stats, err := svc.GetStats(db, owner)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if len(stats.TagStats) != 3 {
		t.Fatalf("Expected 3 tag stats, got %d: %v", len(stats.TagStats), stats.TagStats)
	}
	if stats.TagStats[0].Name != "busy" || stats.TagStats[0].Count != 3 {
		t.Errorf("Expected busy=3 first, got %+v", stats.TagStats[0])
	}
	if stats.TagStats[1].Name != "rare" || stats.TagStats[1].Count != 1 {
		t.Errorf("Expected rare=1 second, got %+v", stats.TagStats[1])
	}
	// Tags with no links still show up, with a zero count.
	if stats.TagStats[2].Name != "unused" || stats.TagStats[2].Count != 0 {
		t.Errorf("Expected unused=0 last, got %+v", stats.TagStats[2])
	}
}

func TestGetPriorityStats_BreakdownPerPriority(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewStatsService()

	now := time.Now()
	seedTask(t, db, owner, models.StatusPending, models.PriorityHigh, nil, nil)
	seedTask(t, db, owner, models.StatusCompleted, models.PriorityHigh, nil, &now)
	seedTask(t, db, owner, models.StatusInProgress, models.PriorityLow, nil, nil)

	stats, err := svc.GetPriorityStats(db, owner)
	if err != nil {
		t.Fatalf("GetPriorityStats failed: %v", err)
	}

	if len(stats) != 3 {
		t.Fatalf("Expected one row per priority, got %d", len(stats))
	}
	if stats[0].Priority != models.PriorityHigh || stats[0].Total != 2 || stats[0].Pending != 1 || stats[0].Completed != 1 {
		t.Errorf("Unexpected high breakdown: %+v", stats[0])
	}
	if stats[1].Priority != models.PriorityMedium || stats[1].Total != 0 {
		t.Errorf("Expected empty medium row, got %+v", stats[1])
	}
	if stats[2].Priority != models.PriorityLow || stats[2].InProgress != 1 {
		t.Errorf("Unexpected low breakdown: %+v", stats[2])
	}
}

func TestGetTimeline_ZeroFillsEveryDay(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewStatsService()

	now := time.Now().UTC()
	seedTask(t, db, owner, models.StatusCompleted, models.PriorityMedium, nil, &now)
	seedTask(t, db, owner, models.StatusPending, models.PriorityMedium, nil, nil)

	timeline, err := svc.GetTimeline(db, owner, 7)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}

	if len(timeline) != 7 {
		t.Fatalf("Expected 7 points, got %d", len(timeline))
	}
	today := now.Truncate(24 * time.Hour).Format("2006-01-02")
	if timeline[6].Date != today {
		t.Errorf("Expected last point to be today (%s), got %s", today, timeline[6].Date)
	}
	if timeline[6].Created != 2 || timeline[6].Completed != 1 {
		t.Errorf("Expected today created=2 completed=1, got %+v", timeline[6])
	}
	for _, point := range timeline[:6] {
		if point.Created != 0 || point.Completed != 0 {
			t.Errorf("Expected zero-filled point for %s, got %+v", point.Date, point)
		}
	}
}

func TestGetTimeline_BucketsServiceCompletions(t *testing.T) {
	db, owner := setupTestDB(t)
	taskSvc := services.NewTaskService()
	svc := services.NewStatsService()

	// Timestamps written by the mutation layer and bucket keys computed
	// here must agree on the calendar day.
	task := mustCreateTask(t, db, taskSvc, owner, services.CreateTaskInput{Title: "A"})
	if _, err := taskSvc.UpdateTask(db, owner, task.ID, services.TaskPatch{Status: strPtr(models.StatusCompleted)}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	timeline, err := svc.GetTimeline(db, owner, 1)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}
	if len(timeline) != 1 {
		t.Fatalf("Expected a single point, got %d", len(timeline))
	}
	if timeline[0].Created != 1 || timeline[0].Completed != 1 {
		t.Errorf("Expected today created=1 completed=1, got %+v", timeline[0])
	}
}

func TestGetTimeline_DefaultsAndCap(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewStatsService()

	timeline, err := svc.GetTimeline(db, owner, 0)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}
	if len(timeline) != 7 {
		t.Errorf("Expected default window of 7 days, got %d", len(timeline))
	}

	timeline, err = svc.GetTimeline(db, owner, 1000)
	if err != nil {
		t.Fatalf("GetTimeline failed: %v", err)
	}
	if len(timeline) != 365 {
		t.Errorf("Expected window capped at 365 days, got %d", len(timeline))
	}
}

func TestGetCompletionRate_EmptyWindowsAreZero(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewStatsService()

	rate, err := svc.GetCompletionRate(db, owner)
	if err != nil {
		t.Fatalf("GetCompletionRate failed: %v", err)
	}
	if rate.Overall != 0 || rate.ThisWeek != 0 || rate.ThisMonth != 0 || rate.AverageCompletionTime != 0 {
		t.Errorf("Expected all-zero rates with no tasks, got %+v", rate)
	}
}

func TestGetCompletionRate_RoundsToTwoDecimals(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewStatsService()

	now := time.Now()
	seedTask(t, db, owner, models.StatusCompleted, models.PriorityMedium, nil, &now)
	seedTask(t, db, owner, models.StatusPending, models.PriorityMedium, nil, nil)
	seedTask(t, db, owner, models.StatusPending, models.PriorityMedium, nil, nil)

	rate, err := svc.GetCompletionRate(db, owner)
	if err != nil {
		t.Fatalf("GetCompletionRate failed: %v", err)
	}
	if rate.Overall != 33.33 {
		t.Errorf("Expected overall 33.33, got %v", rate.Overall)
	}
	if rate.ThisWeek != 33.33 || rate.ThisMonth != 33.33 {
		t.Errorf("Expected window rates 33.33, got week=%v month=%v", rate.ThisWeek, rate.ThisMonth)
	}
}

func TestGetCompletionRate_AverageHours(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewStatsService()

	created := time.Now().Add(-10 * time.Hour)
	completed := time.Now()
	task := seedTask(t, db, owner, models.StatusCompleted, models.PriorityMedium, nil, &completed)
	// Push created_at back so the completion took a known duration.
	if err := db.Model(&models.Task{}).Where("id = ?", task.ID).Update("created_at", created).Error; err != nil {
		t.Fatalf("failed to backdate task: %v", err)
	}

	rate, err := svc.GetCompletionRate(db, owner)
	if err != nil {
		t.Fatalf("GetCompletionRate failed: %v", err)
	}
	if rate.AverageCompletionTime < 9.99 || rate.AverageCompletionTime > 10.01 {
		t.Errorf("Expected ~10h average completion time, got %v", rate.AverageCompletionTime)
	}
}
