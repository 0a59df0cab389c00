package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory store with the full schema and one
// registered owner.
func setupTestDB(t *testing.T) (*gorm.DB, uuid.UUID) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.BlacklistedToken{},
		&models.Tag{},
		&models.Task{},
		&models.TaskTag{},
		&models.TaskHistory{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	user := models.User{
		Email:    fmt.Sprintf("%s@example.com", t.Name()),
		Password: "hashed-password",
		Name:     t.Name(),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })

	return db, user.ID
}

func createUser(t *testing.T, db *gorm.DB, email string) uuid.UUID {
	t.Helper()
	user := models.User{Email: email, Password: "hashed-password", Name: email}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user.ID
}
