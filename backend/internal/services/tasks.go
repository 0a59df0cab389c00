package services

import (
	"strings"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"
	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Batch actions accepted by BatchMutate.
const (
	BatchActionDelete = "delete"
	BatchActionUpdate = "update"
)

type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
	TagNames    []string
}

// TaskPatch is a sparse update: nil pointer fields are left unchanged.
// ClearDueDate distinguishes "remove the deadline" from "leave it alone";
// clearing is only meaningful for the due date.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	ClearDueDate bool
	TagNames     *[]string
}

func (p TaskPatch) isEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate && p.TagNames == nil
}

// statusOnly reports whether the patch touches nothing but status, which
// lets a batch update collapse into one bulk UPDATE.
func (p TaskPatch) statusOnly() bool {
	return p.Status != nil && p.Title == nil && p.Description == nil &&
		p.Priority == nil && p.DueDate == nil && !p.ClearDueDate && p.TagNames == nil
}

func (p TaskPatch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return errs.Validation("title must not be empty")
	}
	if p.Status != nil && !models.ValidStatus(*p.Status) {
		return errs.Validation("unknown status %q", *p.Status)
	}
	if p.Priority != nil && !models.ValidPriority(*p.Priority) {
		return errs.Validation("unknown priority %q", *p.Priority)
	}
	return nil
}

type TaskService interface {
	ListTasks(db *gorm.DB, ownerID uuid.UUID, filter *TaskFilter, sort *SortSpec, page PageSpec) (TaskPage, error)
	GetTaskByID(db *gorm.DB, ownerID, taskID uuid.UUID) (models.Task, error)
	CreateTask(db *gorm.DB, ownerID uuid.UUID, input CreateTaskInput) (models.Task, error)
	UpdateTask(db *gorm.DB, ownerID, taskID uuid.UUID, patch TaskPatch) (models.Task, error)
	DeleteTask(db *gorm.DB, ownerID, taskID uuid.UUID) (models.Task, error)
	BatchDelete(db *gorm.DB, ownerID uuid.UUID, taskIDs []uuid.UUID) (int64, error)
	BatchUpdate(db *gorm.DB, ownerID uuid.UUID, taskIDs []uuid.UUID, patch TaskPatch) (int64, error)
	Reorder(db *gorm.DB, ownerID uuid.UUID, orderedIDs []uuid.UUID) error
	GetTaskHistory(db *gorm.DB, ownerID, taskID uuid.UUID) ([]models.TaskHistory, error)
}

type TaskServiceImpl struct{}

func NewTaskService() *TaskServiceImpl {
	return &TaskServiceImpl{}
}

func (s *TaskServiceImpl) ListTasks(db *gorm.DB, ownerID uuid.UUID, filter *TaskFilter, sort *SortSpec, page PageSpec) (TaskPage, error) {
	page = page.normalize()

	countQuery, err := applyTaskFilter(db, ownerID, filter)
	if err != nil {
		return TaskPage{}, err
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return TaskPage{}, storeErr(err)
	}

	orderClause, err := taskOrderClause(sort)
	if err != nil {
		return TaskPage{}, err
	}

	// Fresh filter chain: a finished Count must not leak state into Find.
	findQuery, err := applyTaskFilter(db, ownerID, filter)
	if err != nil {
		return TaskPage{}, err
	}

	tasks := []models.Task{}
	offset := (page.Page - 1) * page.Size
	err = findQuery.Preload("Tags").Order(orderClause).Offset(offset).Limit(page.Size).Find(&tasks).Error
	if err != nil {
		return TaskPage{}, storeErr(err)
	}

	return TaskPage{Items: tasks, Total: total, Page: page.Page, Size: page.Size}, nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, ownerID, taskID uuid.UUID) (models.Task, error) {
	var task models.Task
	err := db.Preload("Tags").Where("id = ? AND user_id = ?", taskID, ownerID).First(&task).Error
	if err != nil {
		return models.Task{}, notFoundOr(err, "task")
	}
	return task, nil
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, ownerID uuid.UUID, input CreateTaskInput) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, errs.Validation("title must not be empty")
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return models.Task{}, errs.Validation("unknown priority %q", priority)
	}

	task := models.Task{
		UserID:      ownerID,
		Title:       title,
		Description: input.Description,
		Status:      models.StatusPending,
		Priority:    priority,
		DueDate:     input.DueDate,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		err := tx.Model(&models.Task{}).
			Where("user_id = ?", ownerID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error
		if err != nil {
			return err
		}
		task.SortOrder = maxOrder + 1

		if err := tx.Create(&task).Error; err != nil {
			return err
		}

		if len(input.TagNames) > 0 {
			tags, err := resolveTags(tx, ownerID, input.TagNames)
			if err != nil {
				return err
			}
			if err := replaceTaskTags(tx, task.ID, tags); err != nil {
				return err
			}
			task.Tags = tags
		} else {
			task.Tags = []models.Tag{}
		}

		return writeHistory(tx, task.ID, models.ActionCreate, nil, ownerID.String())
	})
	if err != nil {
		return models.Task{}, storeErr(err)
	}

	return task, nil
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, ownerID, taskID uuid.UUID, patch TaskPatch) (models.Task, error) {
	if patch.isEmpty() {
		return models.Task{}, errs.Validation("empty patch")
	}
	if err := patch.validate(); err != nil {
		return models.Task{}, err
	}

	var task models.Task
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tags").Where("id = ? AND user_id = ?", taskID, ownerID).First(&task).Error; err != nil {
			return notFoundOr(err, "task")
		}

		changes, err := applyPatch(tx, &task, patch)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Save(&task).Error; err != nil {
			return err
		}

		for _, change := range changes {
			if err := writeHistory(tx, task.ID, models.ActionUpdatePrefix+change.Field, &change, ownerID.String()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Task{}, storeErr(err)
	}

	return task, nil
}

// applyPatch mutates task in place and returns one change record per field
// that actually differs. Tag replacement happens inside the caller's
// transaction so a failed link write rolls the whole update back.
func applyPatch(tx *gorm.DB, task *models.Task, patch TaskPatch) ([]models.FieldChange, error) {
	var changes []models.FieldChange

	if patch.Title != nil {
		if title := strings.TrimSpace(*patch.Title); title != task.Title {
			changes = append(changes, models.FieldChange{Field: "title", OldValue: task.Title, NewValue: title})
			task.Title = title
		}
	}

	if patch.Description != nil && *patch.Description != task.Description {
		changes = append(changes, models.FieldChange{Field: "description", OldValue: task.Description, NewValue: *patch.Description})
		task.Description = *patch.Description
	}

	if patch.Priority != nil && *patch.Priority != task.Priority {
		changes = append(changes, models.FieldChange{Field: "priority", OldValue: task.Priority, NewValue: *patch.Priority})
		task.Priority = *patch.Priority
	}

	if patch.Status != nil && *patch.Status != task.Status {
		changes = append(changes, models.FieldChange{Field: "status", OldValue: task.Status, NewValue: *patch.Status})
		old := task.Status
		task.Status = *patch.Status
		if task.Status == models.StatusCompleted {
			if task.CompletedAt == nil {
				now := time.Now().UTC()
				task.CompletedAt = &now
			}
		} else if old == models.StatusCompleted {
			task.CompletedAt = nil
		}
	}

	if patch.ClearDueDate {
		if task.DueDate != nil {
			changes = append(changes, models.FieldChange{Field: "due_date", OldValue: formatTime(task.DueDate), NewValue: nil})
			task.DueDate = nil
		}
	} else if patch.DueDate != nil {
		if task.DueDate == nil || !task.DueDate.Equal(*patch.DueDate) {
			changes = append(changes, models.FieldChange{Field: "due_date", OldValue: formatTime(task.DueDate), NewValue: formatTime(patch.DueDate)})
			task.DueDate = patch.DueDate
		}
	}

	if patch.TagNames != nil {
		oldNames := tagNames(task.Tags)
		newNames := normalizeTagNames(*patch.TagNames)
		if !sameStringSet(oldNames, newNames) {
			tags, err := resolveTags(tx, task.UserID, newNames)
			if err != nil {
				return nil, err
			}
			if err := replaceTaskTags(tx, task.ID, tags); err != nil {
				return nil, err
			}
			changes = append(changes, models.FieldChange{Field: "tags", OldValue: oldNames, NewValue: tagNames(tags)})
			task.Tags = tags
		}
	}

	return changes, nil
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, ownerID, taskID uuid.UUID) (models.Task, error) {
	var task models.Task
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tags").Where("id = ? AND user_id = ?", taskID, ownerID).First(&task).Error; err != nil {
			return notFoundOr(err, "task")
		}
		return deleteTasksCascading(tx, []uuid.UUID{task.ID})
	})
	if err != nil {
		return models.Task{}, storeErr(err)
	}
	return task, nil
}

func (s *TaskServiceImpl) BatchDelete(db *gorm.DB, ownerID uuid.UUID, taskIDs []uuid.UUID) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, errs.Validation("task id list must not be empty")
	}

	var affected int64
	err := db.Transaction(func(tx *gorm.DB) error {
		// Unknown ids are skipped, not errors.
		var ownedIDs []uuid.UUID
		err := tx.Model(&models.Task{}).
			Where("user_id = ? AND id IN ?", ownerID, taskIDs).
			Pluck("id", &ownedIDs).Error
		if err != nil {
			return err
		}
		if len(ownedIDs) == 0 {
			return nil
		}

		if err := deleteTasksCascading(tx, ownedIDs); err != nil {
			return err
		}
		affected = int64(len(ownedIDs))
		return nil
	})
	if err != nil {
		return 0, storeErr(err)
	}
	return affected, nil
}

func (s *TaskServiceImpl) BatchUpdate(db *gorm.DB, ownerID uuid.UUID, taskIDs []uuid.UUID, patch TaskPatch) (int64, error) {
	if len(taskIDs) == 0 {
		return 0, errs.Validation("task id list must not be empty")
	}
	if patch.isEmpty() {
		return 0, errs.Validation("empty patch")
	}
	if err := patch.validate(); err != nil {
		return 0, err
	}

	if patch.statusOnly() {
		return s.batchUpdateStatus(db, ownerID, taskIDs, *patch.Status)
	}

	// Mixed patches apply per task; ids that no longer exist are skipped.
	var affected int64
	for _, id := range taskIDs {
		_, err := s.UpdateTask(db, ownerID, id, patch)
		if err != nil {
			if errs.IsNotFound(err) {
				continue
			}
			return affected, err
		}
		affected++
	}
	return affected, nil
}

// batchUpdateStatus applies a status-only patch as one bulk UPDATE, with
// the completed_at side effect folded into the statement, then writes one
// batch-marked history row per affected task.
func (s *TaskServiceImpl) batchUpdateStatus(db *gorm.DB, ownerID uuid.UUID, taskIDs []uuid.UUID, status string) (int64, error) {
	var affected int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var owned []models.Task
		err := tx.Select("id", "status").
			Where("user_id = ? AND id IN ?", ownerID, taskIDs).
			Find(&owned).Error
		if err != nil {
			return err
		}
		if len(owned) == 0 {
			return nil
		}

		ownedIDs := make([]uuid.UUID, len(owned))
		for i, t := range owned {
			ownedIDs[i] = t.ID
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}
		if status == models.StatusCompleted {
			// Keep the original completion time on already-completed tasks.
			updates["completed_at"] = gorm.Expr("CASE WHEN completed_at IS NULL THEN ? ELSE completed_at END", now)
		} else {
			updates["completed_at"] = nil
		}

		err = tx.Model(&models.Task{}).
			Where("user_id = ? AND id IN ?", ownerID, ownedIDs).
			Updates(updates).Error
		if err != nil {
			return err
		}

		records := make([]models.TaskHistory, 0, len(owned))
		for _, t := range owned {
			record := models.TaskHistory{
				TaskID:   t.ID,
				Action:   models.ActionUpdatePrefix + "status",
				Operator: ownerID.String(),
			}
			change := models.FieldChange{Field: "status", OldValue: t.Status, NewValue: status, Batch: true}
			if err := record.SetChange(change); err != nil {
				return err
			}
			records = append(records, record)
		}
		if err := tx.Create(&records).Error; err != nil {
			return err
		}

		affected = int64(len(owned))
		return nil
	})
	if err != nil {
		return 0, storeErr(err)
	}
	return affected, nil
}

// Reorder rewrites the owner's order indices from an explicit id sequence,
// position+1 each. Tasks the list omits keep their prior relative order and
// follow after the listed ones, so indices stay unique and dense across the
// whole set. The assignment is transactional: an id that does not belong to
// the owner aborts every write.
func (s *TaskServiceImpl) Reorder(db *gorm.DB, ownerID uuid.UUID, orderedIDs []uuid.UUID) error {
	if len(orderedIDs) == 0 {
		return errs.Validation("task id list must not be empty")
	}
	listed := make(map[uuid.UUID]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, dup := listed[id]; dup {
			return errs.Validation("duplicate task id %s", id)
		}
		listed[id] = struct{}{}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var all []models.Task
		err := tx.Select("id", "sort_order").
			Where("user_id = ?", ownerID).
			Order("sort_order asc, id asc").
			Find(&all).Error
		if err != nil {
			return err
		}

		oldOrders := make(map[uuid.UUID]int, len(all))
		for _, t := range all {
			oldOrders[t.ID] = t.SortOrder
		}
		for _, id := range orderedIDs {
			if _, ok := oldOrders[id]; !ok {
				return errs.NotFound("task")
			}
		}

		sequence := make([]uuid.UUID, 0, len(all))
		sequence = append(sequence, orderedIDs...)
		for _, t := range all {
			if _, ok := listed[t.ID]; !ok {
				sequence = append(sequence, t.ID)
			}
		}

		now := time.Now().UTC()
		records := make([]models.TaskHistory, 0, len(sequence))
		for position, id := range sequence {
			newOrder := position + 1
			if oldOrders[id] == newOrder {
				continue
			}
			err := tx.Model(&models.Task{}).
				Where("id = ?", id).
				Updates(map[string]interface{}{"sort_order": newOrder, "updated_at": now}).Error
			if err != nil {
				return err
			}

			record := models.TaskHistory{
				TaskID:   id,
				Action:   models.ActionUpdateOrder,
				Operator: ownerID.String(),
			}
			change := models.FieldChange{Field: "order", OldValue: oldOrders[id], NewValue: newOrder}
			if err := record.SetChange(change); err != nil {
				return err
			}
			records = append(records, record)
		}

		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	return storeErr(err)
}

func (s *TaskServiceImpl) GetTaskHistory(db *gorm.DB, ownerID, taskID uuid.UUID) ([]models.TaskHistory, error) {
	var task models.Task
	if err := db.Select("id").Where("id = ? AND user_id = ?", taskID, ownerID).First(&task).Error; err != nil {
		return nil, notFoundOr(err, "task")
	}

	history := []models.TaskHistory{}
	err := db.Where("task_id = ?", taskID).Order("created_at asc").Find(&history).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return history, nil
}

// deleteTasksCascading removes tasks together with their tag links and
// history so neither ever outlives its task.
func deleteTasksCascading(tx *gorm.DB, taskIDs []uuid.UUID) error {
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskTag{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskHistory{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error
}

// replaceTaskTags overwrites the task's whole link set.
func replaceTaskTags(tx *gorm.DB, taskID uuid.UUID, tags []models.Tag) error {
	if err := tx.Where("task_id = ?", taskID).Delete(&models.TaskTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	links := make([]models.TaskTag, len(tags))
	for i, tag := range tags {
		links[i] = models.TaskTag{TaskID: taskID, TagID: tag.ID}
	}
	return tx.Create(&links).Error
}

func writeHistory(tx *gorm.DB, taskID uuid.UUID, action string, change *models.FieldChange, operator string) error {
	record := models.TaskHistory{
		TaskID:   taskID,
		Action:   action,
		Operator: operator,
	}
	if change != nil {
		if err := record.SetChange(*change); err != nil {
			return err
		}
	}
	return tx.Create(&record).Error
}

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func tagNames(tags []models.Tag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return names
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
