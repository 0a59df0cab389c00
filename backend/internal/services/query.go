package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"
	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Sortable fields exposed by the list endpoint.
const (
	SortByPriority    = "priority"
	SortByCreatedAt   = "createdAt"
	SortByUpdatedAt   = "updatedAt"
	SortByCompletedAt = "completedAt"
	SortByDueDate     = "dueDate"
	SortByOrder       = "order"
)

// Date-range targets.
const (
	DateFieldCreated   = "created"
	DateFieldUpdated   = "updated"
	DateFieldCompleted = "completed"
)

// TaskFilter is the optional filter set for listing tasks. All populated
// members are ANDed; TagNames matches tasks carrying any of the listed
// names (OR semantics across names).
type TaskFilter struct {
	Statuses   []string
	Priorities []string
	TagNames   []string
	Keyword    string
	DateField  string
	DateFrom   *time.Time
	DateTo     *time.Time
}

type SortSpec struct {
	Field     string
	Direction string
}

type PageSpec struct {
	Page int
	Size int
}

// normalize applies the (1, 10) defaults for absent pagination.
func (p PageSpec) normalize() PageSpec {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = 10
	}
	return p
}

type TaskPage struct {
	Items []models.Task `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

// applyTaskFilter narrows a tasks query to the owner plus every populated
// filter member. The tag filter goes through a membership subquery because
// one task may carry many tags; joining would duplicate rows and break the
// pre-pagination count.
func applyTaskFilter(db *gorm.DB, ownerID uuid.UUID, filter *TaskFilter) (*gorm.DB, error) {
	query := db.Model(&models.Task{}).Where("tasks.user_id = ?", ownerID)
	if filter == nil {
		return query, nil
	}

	if len(filter.Statuses) > 0 {
		for _, s := range filter.Statuses {
			if !models.ValidStatus(s) {
				return nil, errs.Validation("unknown status %q", s)
			}
		}
		query = query.Where("tasks.status IN ?", filter.Statuses)
	}

	if len(filter.Priorities) > 0 {
		for _, p := range filter.Priorities {
			if !models.ValidPriority(p) {
				return nil, errs.Validation("unknown priority %q", p)
			}
		}
		query = query.Where("tasks.priority IN ?", filter.Priorities)
	}

	if len(filter.TagNames) > 0 {
		query = query.Where(
			"tasks.id IN (SELECT tt.task_id FROM task_tags tt JOIN tags ON tags.id = tt.tag_id WHERE tags.user_id = ? AND tags.name IN ?)",
			ownerID, filter.TagNames,
		)
	}

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		pattern := "%" + strings.ToLower(kw) + "%"
		query = query.Where("(LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?)", pattern, pattern)
	}

	if filter.DateFrom != nil || filter.DateTo != nil {
		var column string
		switch filter.DateField {
		case DateFieldCreated, "":
			column = "tasks.created_at"
		case DateFieldUpdated:
			column = "tasks.updated_at"
		case DateFieldCompleted:
			column = "tasks.completed_at"
			// A completed-range can only match tasks that finished.
			query = query.Where("tasks.completed_at IS NOT NULL")
		default:
			return nil, errs.Validation("unknown date field %q", filter.DateField)
		}
		if filter.DateFrom != nil {
			query = query.Where(column+" >= ?", *filter.DateFrom)
		}
		if filter.DateTo != nil {
			query = query.Where(column+" <= ?", *filter.DateTo)
		}
	}

	return query, nil
}

// taskOrderClause renders the ORDER BY for a sort spec. Null completion
// timestamps sort as the lowest value and null due dates as the highest,
// under either direction; id breaks ties so pages stay stable.
func taskOrderClause(sort *SortSpec) (string, error) {
	field := SortByOrder
	direction := "asc"
	if sort != nil {
		if sort.Field != "" {
			field = sort.Field
		}
		switch strings.ToLower(sort.Direction) {
		case "", "asc":
			direction = "asc"
		case "desc":
			direction = "desc"
		default:
			return "", errs.Validation("unknown sort direction %q", sort.Direction)
		}
	}

	switch field {
	case SortByOrder:
		return "tasks.sort_order " + direction + ", tasks.id asc", nil
	case SortByCreatedAt:
		return "tasks.created_at " + direction + ", tasks.id asc", nil
	case SortByUpdatedAt:
		return "tasks.updated_at " + direction + ", tasks.id asc", nil
	case SortByPriority:
		rank := fmt.Sprintf("CASE tasks.priority WHEN 'high' THEN %d WHEN 'medium' THEN %d ELSE %d END",
			models.PriorityRank[models.PriorityHigh],
			models.PriorityRank[models.PriorityMedium],
			models.PriorityRank[models.PriorityLow])
		return rank + " " + direction + ", tasks.id asc", nil
	case SortByCompletedAt:
		// Null means "never completed", the lowest possible value.
		nulls := "desc"
		if direction == "desc" {
			nulls = "asc"
		}
		return "(tasks.completed_at IS NULL) " + nulls + ", tasks.completed_at " + direction + ", tasks.id asc", nil
	case SortByDueDate:
		// Null means "no deadline", the highest possible value.
		nulls := "asc"
		if direction == "desc" {
			nulls = "desc"
		}
		return "(tasks.due_date IS NULL) " + nulls + ", tasks.due_date " + direction + ", tasks.id asc", nil
	default:
		return "", errs.Validation("unknown sort field %q", field)
	}
}
