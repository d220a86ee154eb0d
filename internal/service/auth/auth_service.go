package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"dealhub/internal/model"
	"dealhub/internal/repository"
	"dealhub/internal/utils"
	"dealhub/pkg/log"
)

var (
	// ErrPhoneTaken the phone number is already registered
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrInvalidCredentials unknown phone or wrong password
	ErrInvalidCredentials = errors.New("invalid phone or password")
)

// AuthService user registration and login
type AuthService interface {
	// Register creates a user with a bcrypt-hashed password
	Register(ctx context.Context, phone, password, nickname string) (*model.User, error)

	// Login verifies credentials and issues a session token
	Login(ctx context.Context, phone, password string) (string, *model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwt      *utils.JWTManager
}

// NewAuthService creates an auth service
func NewAuthService(userRepo repository.UserRepository, jwtManager *utils.JWTManager) AuthService {
	return &authService{userRepo: userRepo, jwt: jwtManager}
}

// Register registers a new user
func (s *authService) Register(ctx context.Context, phone, password, nickname string) (*model.User, error) {
	existing, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Phone:    phone,
		Nickname: nickname,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login logs a user in and returns a token
func (s *authService) Login(ctx context.Context, phone, password string) (string, *model.User, error) {
	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(user.ID, user.Nickname)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return token, user, nil
}
