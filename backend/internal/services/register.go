package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"
	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterService interface {
	RegisterUser(db *gorm.DB, email, password, name string) (*models.User, error)
}

type RegisterServiceImpl struct{}

func NewRegisterService() *RegisterServiceImpl {
	return &RegisterServiceImpl{}
}

// RegisterUser creates an account. Emails are globally unique; display
// names are merely disambiguated with a numeric suffix when taken.
func (s *RegisterServiceImpl) RegisterUser(db *gorm.DB, email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errs.Validation("email must not be empty")
	}
	if len(password) < 8 {
		return nil, errs.Validation("password must be at least 8 characters")
	}

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, errs.Conflict("email %q already exists", email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	name, err := disambiguateName(db, name)
	if err != nil {
		return nil, storeErr(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, storeErr(err)
	}

	user := models.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, storeErr(err)
	}

	return &user, nil
}

// disambiguateName appends the first free numeric suffix when the wanted
// display name is taken: alice, alice2, alice3, ...
func disambiguateName(db *gorm.DB, wanted string) (string, error) {
	candidate := wanted
	for i := 2; ; i++ {
		var count int64
		if err := db.Model(&models.User{}).Where("name = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", wanted, i)
	}
}
