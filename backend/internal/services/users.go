package services

import (
	"strings"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"
	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"github.com/gofrs/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserPatch struct {
	Name     *string
	Avatar   *string
	Password *string
}

type UserService interface {
	GetUserByID(db *gorm.DB, userID uuid.UUID) (*models.User, error)
	UpdateProfile(db *gorm.DB, userID uuid.UUID, patch UserPatch) (*models.User, error)
	DeleteUser(db *gorm.DB, userID uuid.UUID) error
}

type UserServiceImpl struct{}

func NewUserService() *UserServiceImpl {
	return &UserServiceImpl{}
}

func (s *UserServiceImpl) GetUserByID(db *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &user, nil
}

func (s *UserServiceImpl) UpdateProfile(db *gorm.DB, userID uuid.UUID, patch UserPatch) (*models.User, error) {
	if patch.Name == nil && patch.Avatar == nil && patch.Password == nil {
		return nil, errs.Validation("empty patch")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, errs.Validation("name must not be empty")
	}
	if patch.Password != nil && len(*patch.Password) < 8 {
		return nil, errs.Validation("password must be at least 8 characters")
	}

	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return notFoundOr(err, "user")
		}

		if patch.Name != nil {
			user.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Avatar != nil {
			user.Avatar = *patch.Avatar
		}
		if patch.Password != nil {
			hashed, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user.Password = string(hashed)
		}

		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// DeleteUser removes the account and everything scoped to it: refresh
// tokens, tasks (with their links and history), and tags. Mirrors the
// schema's ON DELETE CASCADE chain so embedded test stores behave the same.
func (s *UserServiceImpl) DeleteUser(db *gorm.DB, userID uuid.UUID) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return notFoundOr(err, "user")
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}

		var taskIDs []uuid.UUID
		err := tx.Model(&models.Task{}).Where("user_id = ?", userID).Pluck("id", &taskIDs).Error
		if err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := deleteTasksCascading(tx, taskIDs); err != nil {
				return err
			}
		}

		var tagIDs []uuid.UUID
		if err := tx.Model(&models.Tag{}).Where("user_id = ?", userID).Pluck("id", &tagIDs).Error; err != nil {
			return err
		}
		if len(tagIDs) > 0 {
			if err := tx.Where("tag_id IN ?", tagIDs).Delete(&models.TaskTag{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", tagIDs).Delete(&models.Tag{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&user).Error
	})
	return storeErr(err)
}
