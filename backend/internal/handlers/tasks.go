package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// maxPageSize bounds a single listing response.
const maxPageSize = 100

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Priority    string   `json:"priority"`
		DueDate     *string  `json:"due_date"`
		Tags        []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dueDate, ok := parseOptionalTime(c, req.DueDate)
	if !ok {
		return
	}

	task, err := h.taskService.CreateTask(h.db, ownerID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     dueDate,
		TagNames:    req.Tags,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTaskByID(h.db, ownerID, taskID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	filter := &services.TaskFilter{
		Statuses:   splitParam(c.Query("status")),
		Priorities: splitParam(c.Query("priority")),
		TagNames:   splitParam(c.Query("tags")),
		Keyword:    c.Query("keyword"),
		DateField:  c.Query("dateField"),
	}
	if from, ok := parseOptionalTimeParam(c, c.Query("startDate")); ok {
		filter.DateFrom = from
	} else {
		return
	}
	if to, ok := parseOptionalTimeParam(c, c.Query("endDate")); ok {
		filter.DateTo = to
	} else {
		return
	}

	sort := &services.SortSpec{
		Field:     c.Query("sortBy"),
		Direction: c.Query("order"),
	}

	page := services.PageSpec{
		Page: intQuery(c, "page", 1),
		Size: intQuery(c, "pageSize", 10),
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}

	result, err := h.taskService.ListTasks(h.db, ownerID, filter, sort, page)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	patch, ok := bindTaskPatch(c)
	if !ok {
		return
	}

	task, err := h.taskService.UpdateTask(h.db, ownerID, taskID, patch)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.DeleteTask(h.db, ownerID, taskID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// BatchMutate dispatches {action, ids, patch} to the matching bulk
// operation. Unknown actions are client errors, not 500s.
func (h *TaskHandler) BatchMutate(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Action string          `json:"action" binding:"required"`
		IDs    []string        `json:"ids" binding:"required"`
		Patch  json.RawMessage `json:"patch"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids, ok := parseUUIDs(c, req.IDs)
	if !ok {
		return
	}

	switch req.Action {
	case services.BatchActionDelete:
		affected, err := h.taskService.BatchDelete(h.db, ownerID, ids)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"affected": affected})
	case services.BatchActionUpdate:
		patch, ok := decodeTaskPatch(c, req.Patch)
		if !ok {
			return
		}
		affected, err := h.taskService.BatchUpdate(h.db, ownerID, ids, patch)
		if err != nil {
			handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"affected": affected})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown batch action: " + req.Action})
	}
}

func (h *TaskHandler) ReorderTasks(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ids, ok := parseUUIDs(c, req.IDs)
	if !ok {
		return
	}

	if err := h.taskService.Reorder(h.db, ownerID, ids); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "tasks reordered successfully"})
}

func (h *TaskHandler) GetTaskHistory(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	history, err := h.taskService.GetTaskHistory(h.db, ownerID, taskID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// bindTaskPatch reads a sparse patch body. due_date distinguishes absent
// (leave unchanged) from an explicit null (clear the deadline).
func bindTaskPatch(c *gin.Context) (services.TaskPatch, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return services.TaskPatch{}, false
	}
	return decodeTaskPatch(c, raw)
}

func decodeTaskPatch(c *gin.Context, raw []byte) (services.TaskPatch, bool) {
	var req struct {
		Title       *string         `json:"title"`
		Description *string         `json:"description"`
		Status      *string         `json:"status"`
		Priority    *string         `json:"priority"`
		DueDate     json.RawMessage `json:"due_date"`
		Tags        *[]string       `json:"tags"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return services.TaskPatch{}, false
		}
	}

	patch := services.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		TagNames:    req.Tags,
	}

	if len(req.DueDate) > 0 {
		if bytes.Equal(bytes.TrimSpace(req.DueDate), []byte("null")) {
			patch.ClearDueDate = true
		} else {
			var value string
			if err := json.Unmarshal(req.DueDate, &value); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be a timestamp string or null"})
				return services.TaskPatch{}, false
			}
			parsed, ok := parseOptionalTime(c, &value)
			if !ok {
				return services.TaskPatch{}, false
			}
			patch.DueDate = parsed
		}
	}

	return patch, true
}

func parseUUIDs(c *gin.Context, raw []string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.FromString(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id: " + s})
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	str, _ := value.(string)
	id, err := uuid.FromString(str)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}
	return id, true
}

func splitParam(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intQuery(c *gin.Context, name string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// parseOptionalTime accepts RFC3339 or bare dates, writing a 400 itself on
// garbage input.
func parseOptionalTime(c *gin.Context, value *string) (*time.Time, bool) {
	if value == nil || *value == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *value); err == nil {
			return &t, true
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid timestamp: " + *value})
	return nil, false
}

func parseOptionalTimeParam(c *gin.Context, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	return parseOptionalTime(c, &value)
}
