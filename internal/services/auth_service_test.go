package services

import (
	"context"
	"testing"
	"time"

	"example.com/warehouse/config"
	"example.com/warehouse/internal/metrics"
	"example.com/warehouse/internal/models"
	"example.com/warehouse/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthForTest(repo repository.Repository) AuthService {
	return NewAuthService(repo, metrics.NewMetrics(), config.AuthConfig{
		Secret:        "test-secret",
		TokenLifetime: time.Hour,
	})
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("warehouse-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Username:     "clerk",
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
	}

	repo := new(MockRepository)
	repo.On("FindUserByUsername", mock.Anything, "clerk").Return(user, nil)

	svc := newAuthForTest(repo)

	token, loggedIn, err := svc.Login(context.Background(), "clerk", "warehouse-pass")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, user.Username, loggedIn.Username)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, "clerk", claims.Username)
	require.Equal(t, models.RoleStaff, claims.Role)
	require.Equal(t, user.ID.String(), claims.Subject)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := new(MockRepository)
	repo.On("FindUserByUsername", mock.Anything, "clerk").Return(&models.User{
		Username:     "clerk",
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
	}, nil)

	svc := newAuthForTest(repo)

	_, _, err = svc.Login(context.Background(), "clerk", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindUserByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

	svc := newAuthForTest(repo)

	_, _, err := svc.Login(context.Background(), "ghost", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenRejectsForeignSignature(t *testing.T) {
	repo := new(MockRepository)

	other := NewAuthService(repo, metrics.NewMetrics(), config.AuthConfig{
		Secret:        "other-secret",
		TokenLifetime: time.Hour,
	})

	hash, err := bcrypt.GenerateFromPassword([]byte("pass-word"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("FindUserByUsername", mock.Anything, "clerk").Return(&models.User{
		Username:     "clerk",
		PasswordHash: string(hash),
		Role:         models.RoleStaff,
	}, nil)

	token, _, err := other.Login(context.Background(), "clerk", "pass-word")
	require.NoError(t, err)

	svc := newAuthForTest(repo)
	_, err = svc.VerifyToken(token)
	require.Error(t, err)
}

func TestRegisterValidatesInput(t *testing.T) {
	repo := new(MockRepository)
	svc := newAuthForTest(repo)

	_, err := svc.Register(context.Background(), "", "password123", models.RoleStaff)
	require.True(t, IsInvalidArgument(err))

	_, err = svc.Register(context.Background(), "clerk", "short", models.RoleStaff)
	require.True(t, IsInvalidArgument(err))

	_, err = svc.Register(context.Background(), "clerk", "password123", models.Role("superuser"))
	require.True(t, IsInvalidArgument(err))
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CreateUser", mock.Anything, mock.Anything).Return(nil)

	svc := newAuthForTest(repo)

	user, err := svc.Register(context.Background(), "clerk", "password123", models.RoleStaff)
	require.NoError(t, err)
	require.NotEqual(t, "password123", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
}
