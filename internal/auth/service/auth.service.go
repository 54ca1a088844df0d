package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inkpad/internal/auth/repository"
	"inkpad/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 30 * time.Minute

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService resolves bearer tokens to user identities and owns the
// register/login credential flow.
type AuthService struct {
	Repo   *repository.UserRepository
	secret []byte
}

func NewAuthService(repo *repository.UserRepository, secret []byte) *AuthService {
	return &AuthService{Repo: repo, secret: secret}
}

func (s *AuthService) Register(email, password string) (store.User, error) {
	_, err := s.Repo.GetByEmail(email)
	if err == nil {
		return store.User{}, ErrEmailTaken
	}
	if err != sql.ErrNoRows {
		return store.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, err
	}

	user := store.User{ID: uuid.NewString(), Email: email, Password: string(hash)}
	if err := s.Repo.Create(user.ID, user.Email, user.Password); err != nil {
		return store.User{}, err
	}
	return user, nil
}

func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.Repo.GetByEmail(email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user.Email)
}

func (s *AuthService) issueToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Resolve validates a bearer token and returns the user it identifies.
// Missing, malformed, expired, or unknown-user tokens all map to
// ErrInvalidCredentials.
func (s *AuthService) Resolve(tokenString string) (store.User, error) {
	if tokenString == "" {
		return store.User{}, ErrInvalidCredentials
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return store.User{}, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return store.User{}, ErrInvalidCredentials
	}
	email, ok := claims["sub"].(string)
	if !ok || email == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.Repo.GetByEmail(email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) ListUsers() ([]store.User, error) {
	return s.Repo.List()
}
