package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/cache"
	"github.com/Jancy0713/jancy-template-end/backend/internal/config"
	"github.com/Jancy0713/jancy-template-end/backend/internal/models"
	"github.com/Jancy0713/jancy-template-end/backend/internal/utils"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const blacklistKeyPrefix = "blacklist:"

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthService interface {
	LoginUser(db *gorm.DB, email, password string) (*models.User, error)
	GenerateTokens(db *gorm.DB, userID uuid.UUID) (TokenPair, error)
	RefreshTokens(db *gorm.DB, refreshToken string) (TokenPair, error)
	Logout(ctx context.Context, db *gorm.DB, accessToken, refreshToken string) error
	IsBlacklisted(ctx context.Context, db *gorm.DB, token string) (bool, error)
}

type AuthServiceImpl struct {
	cfg       *config.JWTConfig
	blacklist cache.Cache
}

func NewAuthService(cfg *config.JWTConfig, blacklist cache.Cache) *AuthServiceImpl {
	return &AuthServiceImpl{cfg: cfg, blacklist: blacklist}
}

func VerifyPassword(hashedPassword, plainPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
	return err == nil
}

func (s *AuthServiceImpl) LoginUser(db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GenerateTokens signs an access/refresh pair and records the refresh token
// so it can be rotated or revoked later. One user may hold several refresh
// tokens at once.
func (s *AuthServiceImpl) GenerateTokens(db *gorm.DB, userID uuid.UUID) (TokenPair, error) {
	now := time.Now()

	accessClaims := jwt.MapClaims{
		"user_id": userID.String(),
		"type":    "access",
		"iat":     now.Unix(),
		"exp":     now.Add(s.cfg.AccessTTL).Unix(),
		"iss":     s.cfg.Issuer,
		"aud":     s.cfg.Audience,
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	jti, err := uuid.NewV4()
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate jti: %w", err)
	}

	refreshExpiry := now.Add(s.cfg.RefreshTTL)
	refreshClaims := jwt.MapClaims{
		"user_id": userID.String(),
		"type":    "refresh",
		"jti":     jti.String(),
		"iat":     now.Unix(),
		"exp":     refreshExpiry.Unix(),
		"iss":     s.cfg.Issuer,
		"aud":     s.cfg.Audience,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	record := models.RefreshToken{
		UserID:    userID,
		Token:     refreshToken,
		ExpiresAt: refreshExpiry,
	}
	if err := db.Create(&record).Error; err != nil {
		return TokenPair{}, fmt.Errorf("failed to create refresh token record: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// RefreshTokens rotates a refresh credential: the presented token must
// verify, carry the refresh type, and still exist unexpired in the store.
// The old row is deleted and a fresh pair issued.
func (s *AuthServiceImpl) RefreshTokens(db *gorm.DB, refreshToken string) (TokenPair, error) {
	claims, err := utils.ParseJWT(refreshToken, s.cfg.Secret)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != "refresh" {
		return TokenPair{}, ErrInvalidToken
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	var record models.RefreshToken
	err = db.Where("token = ? AND user_id = ? AND expires_at > ?", refreshToken, userID, time.Now()).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, fmt.Errorf("database error: %w", err)
	}

	if err := db.Delete(&record).Error; err != nil {
		return TokenPair{}, fmt.Errorf("failed to delete old refresh token: %w", err)
	}

	return s.GenerateTokens(db, userID)
}

// Logout deletes the refresh credential and blacklists the access token for
// the remainder of its signing TTL, in the store and the cache mirror.
func (s *AuthServiceImpl) Logout(ctx context.Context, db *gorm.DB, accessToken, refreshToken string) error {
	if refreshToken != "" {
		if err := db.Where("token = ?", refreshToken).Delete(&models.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete refresh token: %w", err)
		}
	}

	if accessToken == "" {
		return nil
	}

	claims, err := utils.ParseJWT(accessToken, s.cfg.Secret)
	if err != nil {
		// Already unverifiable tokens cannot authenticate anyway.
		return nil
	}

	record := models.BlacklistedToken{Token: accessToken}
	if err := db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	ttl := s.cfg.AccessTTL
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if remaining := time.Until(exp.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if s.blacklist != nil {
		if err := s.blacklist.Set(ctx, blacklistKeyPrefix+accessToken, "1", ttl); err != nil {
			log.Printf("⚠️  Blacklist cache write failed: %v", err)
		}
	}

	return nil
}

// IsBlacklisted gates every authenticated request. The cache mirror answers
// most lookups; a miss falls through to the store and backfills.
func (s *AuthServiceImpl) IsBlacklisted(ctx context.Context, db *gorm.DB, token string) (bool, error) {
	if s.blacklist != nil {
		found, err := s.blacklist.Exists(ctx, blacklistKeyPrefix+token)
		if err == nil && found {
			return true, nil
		}
		if err != nil {
			log.Printf("⚠️  Blacklist cache read failed, falling back to store: %v", err)
		}
	}

	var count int64
	err := db.Model(&models.BlacklistedToken{}).Where("token = ?", token).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	if count > 0 && s.blacklist != nil {
		if err := s.blacklist.Set(ctx, blacklistKeyPrefix+token, "1", s.cfg.AccessTTL); err != nil {
			log.Printf("⚠️  Blacklist cache backfill failed: %v", err)
		}
	}
	return count > 0, nil
}
