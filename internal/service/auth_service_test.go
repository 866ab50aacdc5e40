package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/khaled-elsaeed/academic-operations-platform-sub001/internal/models"
	appErrors "github.com/khaled-elsaeed/academic-operations-platform-sub001/pkg/errors"
)

type fakeUsers struct {
	byEmail     map[string]*models.User
	advisorOf   map[string]string
	lastLoginID string
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) FindByID(context.Context, string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id string, _ time.Time) error {
	f.lastLoginID = id
	return nil
}

func (f *fakeUsers) IsAdvisorFor(_ context.Context, advisorUserID, studentID string) (bool, error) {
	return f.advisorOf[advisorUserID] == studentID, nil
}

func newAuthFixture(users *fakeUsers) *AuthService {
	return NewAuthService(users, AuthConfig{
		Secret:     "test_secret",
		Expiration: time.Hour,
		Issuer:     "academic-operations-platform",
	}, validator.New(), zap.NewNop())
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	studentID := "stu-1"
	users := &fakeUsers{byEmail: map[string]*models.User{
		"jo@uni.edu": {
			ID: "u1", Email: "jo@uni.edu", Role: models.RoleStudent,
			StudentID: &studentID, Active: true,
			PasswordHash: hashOf(t, "secret123"),
		},
	}}
	svc := newAuthFixture(users)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "jo@uni.edu", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "u1", users.lastLoginID)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "stu-1", claims.StudentID)
}

func TestLoginRejections(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]*models.User{
		"active@uni.edu":   {ID: "u1", Role: models.RoleAdmin, Active: true, PasswordHash: hashOf(t, "right")},
		"inactive@uni.edu": {ID: "u2", Role: models.RoleAdmin, Active: false, PasswordHash: hashOf(t, "right")},
	}}
	svc := newAuthFixture(users)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@uni.edu", Password: "right"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "active@uni.edu", Password: "wrong"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "inactive@uni.edu", Password: "right"})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "right"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthFixture(&fakeUsers{})
	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	other := NewAuthService(&fakeUsers{}, AuthConfig{Secret: "other_secret", Expiration: time.Hour}, validator.New(), zap.NewNop())
	users := &fakeUsers{byEmail: map[string]*models.User{
		"a@uni.edu": {ID: "u1", Role: models.RoleAdmin, Active: true, PasswordHash: hashOf(t, "pw")},
	}}
	issuer := newAuthFixture(users)
	result, err := issuer.Login(context.Background(), models.LoginRequest{Email: "a@uni.edu", Password: "pw"})
	require.NoError(t, err)
	_, err = other.ValidateToken(result.AccessToken)
	assert.Error(t, err, "a token signed with another secret never validates")
}

func TestCanAccessStudentMatrix(t *testing.T) {
	users := &fakeUsers{advisorOf: map[string]string{"adv-1": "stu-1"}}
	svc := newAuthFixture(users)
	ctx := context.Background()

	assert.NoError(t, svc.CanAccessStudent(ctx, &models.JWTClaims{UserID: "u0", Role: models.RoleAdmin}, "stu-9"))

	assert.NoError(t, svc.CanAccessStudent(ctx, &models.JWTClaims{UserID: "adv-1", Role: models.RoleAdvisor}, "stu-1"))
	err := svc.CanAccessStudent(ctx, &models.JWTClaims{UserID: "adv-1", Role: models.RoleAdvisor}, "stu-2")
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)

	assert.NoError(t, svc.CanAccessStudent(ctx, &models.JWTClaims{Role: models.RoleStudent, StudentID: "stu-1"}, "stu-1"))
	err = svc.CanAccessStudent(ctx, &models.JWTClaims{Role: models.RoleStudent, StudentID: "stu-1"}, "stu-2")
	assert.Equal(t, appErrors.ErrAccessDenied.Code, appErrors.FromError(err).Code)

	assert.Error(t, svc.CanAccessStudent(ctx, nil, "stu-1"))
	assert.Error(t, svc.CanAccessStudent(ctx, &models.JWTClaims{Role: "GHOST"}, "stu-1"))
}
