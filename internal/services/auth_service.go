package services

import (
	"context"
	"strings"
	"time"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login when the username or password
// does not match. Callers must not learn which of the two was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Claims is the JWT payload issued to authenticated users
type Claims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies access tokens
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	Register(ctx context.Context, username, password string, role models.Role) (*models.User, error)
	VerifyToken(tokenString string) (*Claims, error)
}

type authService struct {
	repo    repository.Repository
	metrics *metrics.Metrics
	secret  []byte
	ttl     time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(repo repository.Repository, m *metrics.Metrics, cfg config.AuthConfig) AuthService {
	return &authService{
		repo:    repo,
		metrics: m,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TokenLifetime,
	}
}

// Login checks the credentials and returns a signed token
func (s *authService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.IncrementCounter("auth.login_failures")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, errors.Wrap(err, "failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.IncrementCounter("auth.login_failures")
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := &Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to sign token")
	}

	s.metrics.IncrementCounter("auth.logins")

	log.Info().
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("User logged in")

	return token, user, nil
}

// Register creates a new user with a hashed password
func (s *authService) Register(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, NewInvalidArgumentError("username is required")
	}
	if len(password) < 8 {
		return nil, NewInvalidArgumentError("password must be at least 8 characters")
	}
	if role != models.RoleAdmin && role != models.RoleStaff {
		return nil, NewInvalidArgumentError("unknown role %q", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	log.Info().
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("User registered")

	return user, nil
}

// VerifyToken parses and validates a token string
func (s *authService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
