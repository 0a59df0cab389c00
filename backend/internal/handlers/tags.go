package handlers

import (
	"net/http"

	"github.com/Jancy0713/jancy-template-end/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TagHandler struct {
	db         *gorm.DB
	tagService services.TagService
}

func NewTagHandler(db *gorm.DB, tagService services.TagService) *TagHandler {
	return &TagHandler{db: db, tagService: tagService}
}

func (h *TagHandler) GetTags(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	tags, err := h.tagService.ListTags(h.db, ownerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) CreateTag(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Name  string `json:"name" binding:"required"`
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.tagService.CreateTag(h.db, ownerID, req.Name, req.Color)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *TagHandler) UpdateTag(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}
	tagID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tag, err := h.tagService.UpdateTag(h.db, ownerID, tagID, services.TagPatch{Name: req.Name, Color: req.Color})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *TagHandler) DeleteTag(c *gin.Context) {
	ownerID, ok := currentUser(c)
	if !ok {
		return
	}
	tagID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.tagService.DeleteTag(h.db, ownerID, tagID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}
