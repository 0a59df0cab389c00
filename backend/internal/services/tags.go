package services

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"
	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// tagColorPalette is the fixed set auto-created tags draw from.
var tagColorPalette = []string{
	"#f87171", "#fb923c", "#facc15", "#4ade80",
	"#22d3ee", "#60a5fa", "#a78bfa", "#f472b6",
}

func randomTagColor() string {
	return tagColorPalette[rand.Intn(len(tagColorPalette))]
}

type TagPatch struct {
	Name  *string
	Color *string
}

type TagService interface {
	ListTags(db *gorm.DB, ownerID uuid.UUID) ([]models.Tag, error)
	CreateTag(db *gorm.DB, ownerID uuid.UUID, name, color string) (models.Tag, error)
	UpdateTag(db *gorm.DB, ownerID, tagID uuid.UUID, patch TagPatch) (models.Tag, error)
	DeleteTag(db *gorm.DB, ownerID, tagID uuid.UUID) error
}

type TagServiceImpl struct{}

func NewTagService() *TagServiceImpl {
	return &TagServiceImpl{}
}

func (s *TagServiceImpl) ListTags(db *gorm.DB, ownerID uuid.UUID) ([]models.Tag, error) {
	tags := []models.Tag{}
	err := db.Where("user_id = ?", ownerID).Order("created_at asc").Find(&tags).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return tags, nil
}

func (s *TagServiceImpl) CreateTag(db *gorm.DB, ownerID uuid.UUID, name, color string) (models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Tag{}, errs.Validation("tag name must not be empty")
	}
	if color == "" {
		color = randomTagColor()
	}

	var existing models.Tag
	err := db.Where("user_id = ? AND name = ?", ownerID, name).First(&existing).Error
	if err == nil {
		return models.Tag{}, errs.Conflict("tag %q already exists", name)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Tag{}, storeErr(err)
	}

	tag := models.Tag{UserID: ownerID, Name: name, Color: color}
	if err := db.Create(&tag).Error; err != nil {
		return models.Tag{}, storeErr(err)
	}
	return tag, nil
}

func (s *TagServiceImpl) UpdateTag(db *gorm.DB, ownerID, tagID uuid.UUID, patch TagPatch) (models.Tag, error) {
	if patch.Name == nil && patch.Color == nil {
		return models.Tag{}, errs.Validation("empty patch")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return models.Tag{}, errs.Validation("tag name must not be empty")
	}

	var tag models.Tag
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", tagID, ownerID).First(&tag).Error; err != nil {
			return notFoundOr(err, "tag")
		}

		if patch.Name != nil && *patch.Name != tag.Name {
			name := strings.TrimSpace(*patch.Name)
			var clash models.Tag
			err := tx.Where("user_id = ? AND name = ? AND id <> ?", ownerID, name, tagID).First(&clash).Error
			if err == nil {
				return errs.Conflict("tag %q already exists", name)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			tag.Name = name
		}
		if patch.Color != nil {
			tag.Color = *patch.Color
		}

		return tx.Save(&tag).Error
	})
	if err != nil {
		return models.Tag{}, storeErr(err)
	}
	return tag, nil
}

// DeleteTag removes the tag and its task links; tasks themselves survive.
func (s *TagServiceImpl) DeleteTag(db *gorm.DB, ownerID, tagID uuid.UUID) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var tag models.Tag
		if err := tx.Where("id = ? AND user_id = ?", tagID, ownerID).First(&tag).Error; err != nil {
			return notFoundOr(err, "tag")
		}
		if err := tx.Where("tag_id = ?", tagID).Delete(&models.TaskTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tag).Error
	})
	return storeErr(err)
}

// normalizeTagNames trims, drops empties, and de-duplicates while keeping
// first-seen order.
func normalizeTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// resolveTags maps names to the owner's tags, creating any it has not seen
// before with a palette color.
func resolveTags(tx *gorm.DB, ownerID uuid.UUID, names []string) ([]models.Tag, error) {
	names = normalizeTagNames(names)
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		err := tx.Where("user_id = ? AND name = ?", ownerID, name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{UserID: ownerID, Name: name, Color: randomTagColor()}
			err = tx.Create(&tag).Error
		}
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
