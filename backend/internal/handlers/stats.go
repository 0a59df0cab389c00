package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/cache"
	"github.com/Jancy0713/jancy-template-end/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const statsCacheTTL = 30 * time.Second

type StatsHandler struct {
	db           *gorm.DB
	statsService services.StatsService
	cache        cache.Cache
}

func NewStatsHandler(db *gorm.DB, statsService services.StatsService, statsCache cache.Cache) *StatsHandler {
	return &StatsHandler{db: db, statsService: statsService, cache: statsCache}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	cacheKey := "stats:" + ownerID.String()
	if h.cache != nil {
		if cached, hit, err := h.cache.Get(c.Request.Context(), cacheKey); err == nil && hit {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			return
		}
	}

	stats, err := h.statsService.GetStats(h.db, ownerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if h.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			_ = h.cache.Set(c.Request.Context(), cacheKey, string(raw), statsCacheTTL)
		}
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) GetPriorityStats(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	stats, err := h.statsService.GetPriorityStats(h.db, ownerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) GetTimeline(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	days := 7
	if v, err := strconv.Atoi(c.Query("days")); err == nil && v > 0 {
		days = v
	}

	timeline, err := h.statsService.GetTimeline(h.db, ownerID, days)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

func (h *StatsHandler) GetCompletionRate(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	rate, err := h.statsService.GetCompletionRate(h.db, ownerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}
