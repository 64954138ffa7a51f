package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/donezo/internal/config"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/dto"
	"github.com/ahmetcoskunkizilkaya/donezo/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// DefaultLabels are created for every new account.
var DefaultLabels = []struct {
	Name  string
	Color string
}{
	{"Work", "#2563eb"},
	{"Personal", "#7c3aed"},
	{"Bug", "#dc2626"},
	{"Feature", "#16a34a"},
}

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

// Signup creates the user and its default labels in one transaction and
// returns a session token.
func (s *AuthService) Signup(req *dto.SignupRequest) (*models.User, string, error) {
	var existing int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return nil, "", err
	}
	if existing > 0 {
		return nil, "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:       uuid.New(),
		Email:    req.Email,
		Password: string(hash),
		Name:     req.Name,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		labels := make([]models.Label, len(DefaultLabels))
		for i, l := range DefaultLabels {
			color := l.Color
			labels[i] = models.Label{ID: uuid.New(), Name: l.Name, Color: &color, UserID: user.ID}
		}
		return tx.Create(&labels).Error
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *AuthService) Login(req *dto.LoginRequest) (*models.User, string, error) {
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

func (s *AuthService) Me(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) CompleteOnboarding(userID uuid.UUID) (*models.User, error) {
	result := s.db.Model(&models.User{}).Where("id = ?", userID).Update("has_completed_onboarding", true)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return s.Me(userID)
}

// IssueToken signs an HS256 session token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
