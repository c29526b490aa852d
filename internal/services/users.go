package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/emmayusufu/googledriveclone/internal/apperr"
	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/emmayusufu/googledriveclone/pkg/utils"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

func (s *UserService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	fields := map[string][]string{}
	if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = append(fields["email"], "invalid email")
	}
	if len(password) < minPasswordLength {
		fields["password"] = append(fields["password"], "password must be at least 8 characters")
	}
	if name == "" {
		fields["name"] = append(fields["name"], "name is required")
	}
	if len(fields) > 0 {
		return nil, &apperr.ValidationError{Message: "validation failed", Fields: fields}
	}

	var existing models.User
	if err := s.DB.WithContext(ctx).First(&existing, "email = ?", email).Error; err == nil {
		return nil, apperr.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, PasswordHash: hash, Name: name}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
	})
	return &user, nil
}

// Authenticate returns AuthenticationError for an unknown email and a wrong
// password alike.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		logger.Warn("login_failed_user_not_found", map[string]interface{}{"email": email})
		return nil, apperr.AuthenticationError{}
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"email":   email,
		})
		return nil, apperr.AuthenticationError{}
	}

	logger.Info("user_login", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
	})
	return &user, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}
