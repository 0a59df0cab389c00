package services

import (
	"math"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TagStat struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Stats struct {
	Total      int64     `json:"total"`
	Pending    int64     `json:"pending"`
	InProgress int64     `json:"inProgress"`
	Completed  int64     `json:"completed"`
	Overdue    int64     `json:"overdue"`
	TagStats   []TagStat `json:"tagStats"`
}

type PriorityStat struct {
	Priority   string `json:"priority"`
	Total      int64  `json:"total"`
	Pending    int64  `json:"pending"`
	InProgress int64  `json:"inProgress"`
	Completed  int64  `json:"completed"`
}

type TimelinePoint struct {
	Date      string `json:"date"`
	Created   int64  `json:"created"`
	Completed int64  `json:"completed"`
}

type CompletionRate struct {
	Overall               float64 `json:"overall"`
	ThisWeek              float64 `json:"thisWeek"`
	ThisMonth             float64 `json:"thisMonth"`
	AverageCompletionTime float64 `json:"averageCompletionTime"`
}

type StatsService interface {
	GetStats(db *gorm.DB, ownerID uuid.UUID) (Stats, error)
	GetPriorityStats(db *gorm.DB, ownerID uuid.UUID) ([]PriorityStat, error)
	GetTimeline(db *gorm.DB, ownerID uuid.UUID, days int) ([]TimelinePoint, error)
	GetCompletionRate(db *gorm.DB, ownerID uuid.UUID) (CompletionRate, error)
}

type StatsServiceImpl struct{}

func NewStatsService() *StatsServiceImpl {
	return &StatsServiceImpl{}
}

func (s *StatsServiceImpl) GetStats(db *gorm.DB, ownerID uuid.UUID) (Stats, error) {
	stats := Stats{TagStats: []TagStat{}}

	var rows []struct {
		Status string
		Count  int64
	}
	err := db.Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, storeErr(err)
	}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.StatusPending:
			stats.Pending = row.Count
		case models.StatusInProgress:
			stats.InProgress = row.Count
		case models.StatusCompleted:
			stats.Completed = row.Count
		}
	}

	// Completed tasks are never overdue, no matter the deadline.
	err = db.Model(&models.Task{}).
		Where("user_id = ? AND status <> ? AND due_date IS NOT NULL AND due_date < ?",
			ownerID, models.StatusCompleted, time.Now()).
		Count(&stats.Overdue).Error
	if err != nil {
		return Stats{}, storeErr(err)
	}

	err = db.Table("tags").
		Select("tags.name AS name, COUNT(task_tags.task_id) AS count").
		Joins("LEFT JOIN task_tags ON task_tags.tag_id = tags.id").
		Where("tags.user_id = ?", ownerID).
		Group("tags.name").
		Order("count DESC, name ASC").
		Scan(&stats.TagStats).Error
	if err != nil {
		return Stats{}, storeErr(err)
	}

	return stats, nil
}

func (s *StatsServiceImpl) GetPriorityStats(db *gorm.DB, ownerID uuid.UUID) ([]PriorityStat, error) {
	var rows []struct {
		Priority string
		Status   string
		Count    int64
	}
	err := db.Model(&models.Task{}).
		Select("priority, status, COUNT(*) AS count").
		Where("user_id = ?", ownerID).
		Group("priority, status").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr(err)
	}

	byPriority := map[string]*PriorityStat{}
	order := []string{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	for _, p := range order {
		byPriority[p] = &PriorityStat{Priority: p}
	}
	for _, row := range rows {
		stat, ok := byPriority[row.Priority]
		if !ok {
			continue
		}
		stat.Total += row.Count
		switch row.Status {
		case models.StatusPending:
			stat.Pending = row.Count
		case models.StatusInProgress:
			stat.InProgress = row.Count
		case models.StatusCompleted:
			stat.Completed = row.Count
		}
	}

	result := make([]PriorityStat, 0, len(order))
	for _, p := range order {
		result = append(result, *byPriority[p])
	}
	return result, nil
}

// GetTimeline reports per-day created and completed counts for the trailing
// days window, today included. Days are bucketed on the stored timestamps'
// UTC calendar day, one consistent reference for both series.
func (s *StatsServiceImpl) GetTimeline(db *gorm.DB, ownerID uuid.UUID, days int) ([]TimelinePoint, error) {
	if days <= 0 {
		days = 7
	}
	if days > 365 {
		days = 365
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))

	type dayCount struct {
		Day   string
		Count int64
	}

	var created []dayCount
	err := db.Model(&models.Task{}).
		Select("date(created_at) AS day, COUNT(*) AS count").
		Where("user_id = ? AND created_at >= ?", ownerID, start).
		Group("day").
		Scan(&created).Error
	if err != nil {
		return nil, storeErr(err)
	}

	var completed []dayCount
	err = db.Model(&models.Task{}).
		Select("date(completed_at) AS day, COUNT(*) AS count").
		Where("user_id = ? AND completed_at IS NOT NULL AND completed_at >= ?", ownerID, start).
		Group("day").
		Scan(&completed).Error
	if err != nil {
		return nil, storeErr(err)
	}

	createdByDay := make(map[string]int64, len(created))
	for _, row := range created {
		createdByDay[row.Day] = row.Count
	}
	completedByDay := make(map[string]int64, len(completed))
	for _, row := range completed {
		completedByDay[row.Day] = row.Count
	}

	timeline := make([]TimelinePoint, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		timeline = append(timeline, TimelinePoint{
			Date:      day,
			Created:   createdByDay[day],
			Completed: completedByDay[day],
		})
	}
	return timeline, nil
}

// GetCompletionRate reports completion percentages over all time and the
// trailing 7- and 30-day creation windows, plus the mean completion
// duration in hours. Empty windows yield 0, never a division by zero.
func (s *StatsServiceImpl) GetCompletionRate(db *gorm.DB, ownerID uuid.UUID) (CompletionRate, error) {
	now := time.Now()
	rate := CompletionRate{}

	overall, err := completionRateSince(db, ownerID, nil)
	if err != nil {
		return CompletionRate{}, err
	}
	rate.Overall = overall

	weekStart := now.AddDate(0, 0, -7)
	rate.ThisWeek, err = completionRateSince(db, ownerID, &weekStart)
	if err != nil {
		return CompletionRate{}, err
	}

	monthStart := now.AddDate(0, 0, -30)
	rate.ThisMonth, err = completionRateSince(db, ownerID, &monthStart)
	if err != nil {
		return CompletionRate{}, err
	}

	var pairs []struct {
		CreatedAt   time.Time
		CompletedAt time.Time
	}
	err = db.Model(&models.Task{}).
		Select("created_at, completed_at").
		Where("user_id = ? AND completed_at IS NOT NULL", ownerID).
		Scan(&pairs).Error
	if err != nil {
		return CompletionRate{}, storeErr(err)
	}
	if len(pairs) > 0 {
		var totalHours float64
		for _, pair := range pairs {
			totalHours += pair.CompletedAt.Sub(pair.CreatedAt).Hours()
		}
		rate.AverageCompletionTime = round2(totalHours / float64(len(pairs)))
	}

	return rate, nil
}

func completionRateSince(db *gorm.DB, ownerID uuid.UUID, since *time.Time) (float64, error) {
	scoped := func() *gorm.DB {
		q := db.Model(&models.Task{}).Where("user_id = ?", ownerID)
		if since != nil {
			q = q.Where("created_at >= ?", *since)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return 0, storeErr(err)
	}
	if total == 0 {
		return 0, nil
	}

	var completed int64
	err := scoped().Where("status = ?", models.StatusCompleted).Count(&completed).Error
	if err != nil {
		return 0, storeErr(err)
	}

	return round2(float64(completed) / float64(total) * 100), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
