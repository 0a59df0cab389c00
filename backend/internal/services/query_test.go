package services_test

import (
	"testing"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"
	"github.com/Jancy0713/jancy-template-end/backend/internal/models"
	"github.com/Jancy0713/jancy-template-end/backend/internal/services"

	"github.com/gofrs/uuid"
)

func listTitles(page services.TaskPage) []string {
	titles := make([]string, len(page.Items))
	for i, task := range page.Items {
		titles[i] = task.Title
	}
	return titles
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListTasks_FiltersAreANDed(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "urgent report", Priority: models.PriorityHigh})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "urgent chores", Priority: models.PriorityLow})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "slides", Priority: models.PriorityHigh})

	page, err := svc.ListTasks(db, owner, &services.TaskFilter{
		Priorities: []string{models.PriorityHigh},
		Keyword:    "urgent",
	}, nil, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Title != "urgent report" {
		t.Errorf("Expected only the high-priority urgent task, got total=%d titles=%v", page.Total, listTitles(page))
	}
}

func TestListTasks_KeywordMatchesTitleOrDescription(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "Write REPORT"})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "Other", Description: "quarterly report draft"})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "Unrelated"})

	page, err := svc.ListTasks(db, owner, &services.TaskFilter{Keyword: "report"}, nil, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("Expected 2 keyword matches, got %d (%v)", page.Total, listTitles(page))
	}
}

func TestListTasks_TagFilterIsORAcrossNames(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "a", TagNames: []string{"work"}})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "b", TagNames: []string{"home"}})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "c", TagNames: []string{"work", "home"}})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "d"})

	page, err := svc.ListTasks(db, owner, &services.TaskFilter{
		TagNames: []string{"work", "home"},
	}, &services.SortSpec{Field: services.SortByOrder}, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	// c carries both names but must appear exactly once.
	want := []string{"a", "b", "c"}
	if page.Total != 3 || !equalStrings(listTitles(page), want) {
		t.Errorf("Expected %v, got total=%d titles=%v", want, page.Total, listTitles(page))
	}
}

func TestListTasks_ScopedToOwner(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()
	other := createUser(t, db, "other@example.com")

	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "mine"})
	mustCreateTask(t, db, svc, other, services.CreateTaskInput{Title: "theirs"})

	page, err := svc.ListTasks(db, owner, nil, nil, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if page.Total != 1 || page.Items[0].Title != "mine" {
		t.Errorf("Expected only the owner's task, got %v", listTitles(page))
	}
}

func TestListTasks_DateRangeOnCompletion(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	done := mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "done"})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "open"})
	if _, err := svc.UpdateTask(db, owner, done.ID, services.TaskPatch{Status: strPtr(models.StatusCompleted)}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	page, err := svc.ListTasks(db, owner, &services.TaskFilter{
		DateField: services.DateFieldCompleted,
		DateFrom:  &from,
		DateTo:    &to,
	}, nil, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	// The never-completed task must not match a completion range.
	if page.Total != 1 || page.Items[0].Title != "done" {
		t.Errorf("Expected only the completed task, got %v", listTitles(page))
	}
}

func TestListTasks_SortByPriorityRank(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "m", Priority: models.PriorityMedium})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "h", Priority: models.PriorityHigh})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "l", Priority: models.PriorityLow})

	page, err := svc.ListTasks(db, owner, nil, &services.SortSpec{
		Field:     services.SortByPriority,
		Direction: "desc",
	}, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	want := []string{"h", "m", "l"}
	if !equalStrings(listTitles(page), want) {
		t.Errorf("Expected %v, got %v", want, listTitles(page))
	}
}

func TestListTasks_NullCompletedAtSortsLowest(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	early := mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "early"})
	late := mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "late"})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "never"})

	earlyAt := time.Now().Add(-2 * time.Hour)
	lateAt := time.Now().Add(-time.Hour)
	db.Model(&models.Task{}).Where("id = ?", early.ID).
		Updates(map[string]interface{}{"status": models.StatusCompleted, "completed_at": earlyAt})
	db.Model(&models.Task{}).Where("id = ?", late.ID).
		Updates(map[string]interface{}{"status": models.StatusCompleted, "completed_at": lateAt})

	asc, err := svc.ListTasks(db, owner, nil, &services.SortSpec{Field: services.SortByCompletedAt, Direction: "asc"}, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks asc failed: %v", err)
	}
	if want := []string{"never", "early", "late"}; !equalStrings(listTitles(asc), want) {
		t.Errorf("asc: expected %v, got %v", want, listTitles(asc))
	}

	desc, err := svc.ListTasks(db, owner, nil, &services.SortSpec{Field: services.SortByCompletedAt, Direction: "desc"}, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks desc failed: %v", err)
	}
	if want := []string{"late", "early", "never"}; !equalStrings(listTitles(desc), want) {
		t.Errorf("desc: expected %v, got %v", want, listTitles(desc))
	}
}

func TestListTasks_NullDueDateSortsHighest(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(72 * time.Hour)
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "later", DueDate: &later})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "none"})
	mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "soon", DueDate: &soon})

	asc, err := svc.ListTasks(db, owner, nil, &services.SortSpec{Field: services.SortByDueDate, Direction: "asc"}, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks asc failed: %v", err)
	}
	if want := []string{"soon", "later", "none"}; !equalStrings(listTitles(asc), want) {
		t.Errorf("asc: expected %v, got %v", want, listTitles(asc))
	}

	desc, err := svc.ListTasks(db, owner, nil, &services.SortSpec{Field: services.SortByDueDate, Direction: "desc"}, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks desc failed: %v", err)
	}
	if want := []string{"none", "later", "soon"}; !equalStrings(listTitles(desc), want) {
		t.Errorf("desc: expected %v, got %v", want, listTitles(desc))
	}
}

func TestListTasks_PaginationDefaultsAndTotal(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	for i := 0; i < 12; i++ {
		mustCreateTask(t, db, svc, owner, services.CreateTaskInput{Title: "t"})
	}

	page, err := svc.ListTasks(db, owner, nil, nil, services.PageSpec{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if page.Page != 1 || page.Size != 10 {
		t.Errorf("Expected default page (1, 10), got (%d, %d)", page.Page, page.Size)
	}
	if len(page.Items) != 10 {
		t.Errorf("Expected 10 items on page 1, got %d", len(page.Items))
	}
	// Total counts every match, not just the page.
	if page.Total != 12 {
		t.Errorf("Expected total=12, got %d", page.Total)
	}

	page2, err := svc.ListTasks(db, owner, nil, nil, services.PageSpec{Page: 2, Size: 10})
	if err != nil {
		t.Fatalf("ListTasks page 2 failed: %v", err)
	}
	if len(page2.Items) != 2 || page2.Total != 12 {
		t.Errorf("Expected 2 items and total=12 on page 2, got %d and %d", len(page2.Items), page2.Total)
	}

	empty, err := svc.ListTasks(db, owner, nil, nil, services.PageSpec{Page: 5, Size: 10})
	if err != nil {
		t.Fatalf("ListTasks past the end failed: %v", err)
	}
	if len(empty.Items) != 0 || empty.Total != 12 {
		t.Errorf("Expected empty page past the end with total=12, got %d items and total=%d", len(empty.Items), empty.Total)
	}
}

func TestListTasks_ValidationErrors(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	tests := []struct {
		name   string
		filter *services.TaskFilter
		sort   *services.SortSpec
	}{
		{"unknown status", &services.TaskFilter{Statuses: []string{"done"}}, nil},
		{"unknown priority", &services.TaskFilter{Priorities: []string{"urgent"}}, nil},
		{"unknown date field", &services.TaskFilter{DateField: "deleted", DateFrom: timePtr(time.Now())}, nil},
		{"unknown sort field", nil, &services.SortSpec{Field: "popularity"}},
		{"unknown sort direction", nil, &services.SortSpec{Field: services.SortByOrder, Direction: "sideways"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListTasks(db, owner, tt.filter, tt.sort, services.PageSpec{})
			if !errs.IsValidation(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestGetTaskByID_NotFound(t *testing.T) {
	db, owner := setupTestDB(t)
	svc := services.NewTaskService()

	_, err := svc.GetTaskByID(db, owner, uuid.Must(uuid.NewV4()))
	if !errs.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}
