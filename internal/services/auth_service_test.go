package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ecofinds/internal/blob"
	"ecofinds/internal/models"
	"ecofinds/internal/repositories"
	"ecofinds/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	in := services.RegisterInput{Username: "testuser", Email: "test@example.com", Password: "password123"}

	var stored *models.User
	mockRepo.On("GetByEmail", mock.Anything, in.Email).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*models.User)
			stored.ID = "user-1"
		}).
		Return(nil).Once()

	user, err := authService.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "testuser", user.Username)
	assert.Empty(t, user.PasswordHash, "returned profile must not carry the hash")
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Email already registered
	mockRepo.On("GetByEmail", mock.Anything, in.Email).Return(&models.User{ID: "1"}, nil).Once()
	_, err = authService.Register(ctx, in)
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	assert.ErrorIs(t, err, repositories.ErrConstraintViolation)
	assert.Contains(t, err.Error(), "test@example.com")
	mockRepo.AssertExpectations(t)

	// Lost race: the repository rejects the insert
	mockRepo.On("GetByEmail", mock.Anything, in.Email).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("dup: %w", repositories.ErrConstraintViolation)).Once()
	_, err = authService.Register(ctx, in)
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	cases := []services.RegisterInput{
		{Username: "testuser", Email: "test@example.com", Password: "short"},
		{Username: "testuser", Email: "not-an-email", Password: "password123"},
		{Username: "  ", Email: "test@example.com", Password: "password123"},
	}
	for _, in := range cases {
		_, err := authService.Register(context.Background(), in)
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.ErrorIs(t, err, services.ErrValidation)
		assert.NotEmpty(t, verr.Fields)
	}
	// Rejected before any storage call.
	mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	authService := services.NewAuthService(repositories.NewMockUserRepository(), nil, testJWTSecret)

	registered, err := authService.Register(ctx, services.RegisterInput{
		Username: "testuser", Email: "test@example.com", Password: "password123",
	})
	require.NoError(t, err)

	user, token, err := authService.Login(ctx, "TEST@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, "testuser", claims["username"])

	// Wrong password and unknown email give the same answer.
	_, _, err = authService.Login(ctx, "test@example.com", "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, _, err = authService.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), nil, testJWTSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, "testuser", claims["username"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	otherSecret, _ := token.SignedString([]byte("other_secret"))
	_, err = authService.ValidateToken(otherSecret)
	assert.Error(t, err)

	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"exp":      jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := blob.NewFSStore(fs, "/uploads", "http://localhost:8080/uploads")
	authService := services.NewAuthService(repositories.NewMockUserRepository(), store, testJWTSecret)

	u, err := authService.Register(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	bio := "Thrifting since 2010"
	gender := models.GenderFemale
	updated, err := authService.UpdateProfile(ctx, u.ID, services.ProfileUpdate{Bio: &bio, Gender: &gender},
		&services.Upload{Filename: "me.png", Data: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	assert.Equal(t, models.GenderFemale, updated.Gender)
	assert.Equal(t, "alice", updated.Username, "unset fields are kept")
	require.NotEmpty(t, updated.AvatarURL)
	firstAvatar, ok := store.PathFromURL(updated.AvatarURL)
	require.True(t, ok)
	exists, _ := afero.Exists(fs, "/uploads/"+firstAvatar)
	assert.True(t, exists)

	// A rejected avatar still saves the other fields.
	address := "12 Market Street"
	updated, err = authService.UpdateProfile(ctx, u.ID, services.ProfileUpdate{Address: &address},
		&services.Upload{Filename: "notes.txt", Data: []byte("not an image")})
	assert.ErrorIs(t, err, services.ErrUploadFailed)
	require.NotNil(t, updated)
	assert.Equal(t, address, updated.Address)
	stored, err := authService.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, address, stored.Address)
	assert.Equal(t, updated.AvatarURL, stored.AvatarURL)

	// Replacing the avatar removes the previous file.
	updated, err = authService.UpdateProfile(ctx, u.ID, services.ProfileUpdate{}, &services.Upload{Filename: "new.png", Data: pngBytes})
	require.NoError(t, err)
	exists, _ = afero.Exists(fs, "/uploads/"+firstAvatar)
	assert.False(t, exists)
	assert.NotEqual(t, stored.AvatarURL, updated.AvatarURL)
}

func TestAuthService_UpdateProfileEmail(t *testing.T) {
	ctx := context.Background()
	authService := services.NewAuthService(repositories.NewMockUserRepository(), nil, testJWTSecret)

	alice, err := authService.Register(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	bob, err := authService.Register(ctx, services.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	taken := "Alice@example.com"
	_, err = authService.UpdateProfile(ctx, bob.ID, services.ProfileUpdate{Email: &taken}, nil)
	assert.ErrorIs(t, err, services.ErrEmailTaken)

	fresh := "robert@example.com"
	updated, err := authService.UpdateProfile(ctx, bob.ID, services.ProfileUpdate{Email: &fresh}, nil)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, updated.ID)
	assert.Equal(t, fresh, updated.Email)

	// Login follows the new address.
	_, _, err = authService.Login(ctx, fresh, "password123")
	assert.NoError(t, err)

	bad := "nope"
	_, err = authService.UpdateProfile(ctx, alice.ID, services.ProfileUpdate{Email: &bad}, nil)
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = authService.UpdateProfile(ctx, "missing", services.ProfileUpdate{}, nil)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
