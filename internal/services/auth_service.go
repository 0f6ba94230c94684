package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecofinds/internal/blob"
	"ecofinds/internal/models"
	"ecofinds/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login, tokens and profile edits.
type AuthService struct {
	userRepo   repositories.UserRepository
	blobs      blob.Store
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService. blobs may be nil when avatars are not used.
func NewAuthService(userRepo repositories.UserRepository, blobs blob.Store, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		blobs:      blobs,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// RegisterInput is the validated form of a sign-up request.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if existing, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("'%s': %w", in.Email, ErrEmailTaken)
	} else if err != nil && !IsNotFound(err) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConstraintViolation) {
			return nil, fmt.Errorf("'%s': %w", in.Email, ErrEmailTaken)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	public := user.Public()
	return &public, nil
}

// Authenticate checks an email/password pair and returns the profile.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if IsNotFound(err) {
			// Same answer for unknown email and wrong password.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	public := user.Public()
	return &public, nil
}

// Login authenticates a user and returns the profile with a signed JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs a JWT for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenDurat).Unix(),
		"iat":      time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		logrus.WithError(err).Debug("Token validation error")
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// GetProfile returns the public profile of a user.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

// ProfileUpdate holds the fields a user may change. Nil means unchanged.
// It has no ID field; the id comes from the session.
type ProfileUpdate struct {
	Username *string        `json:"username" validate:"omitempty,min=3,max=100"`
	Email    *string        `json:"email" validate:"omitempty,email"`
	Bio      *string        `json:"bio" validate:"omitempty,max=500"`
	Gender   *models.Gender `json:"gender" validate:"omitempty,oneof=male female other undisclosed"`
	Address  *string        `json:"address" validate:"omitempty,max=255"`
}

// UpdateProfile merges upd into the stored profile of userID.
//
// A rejected avatar does not stop the other fields from being saved: in that
// case the saved profile is returned together with an error wrapping
// ErrUploadFailed.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate, avatar *Upload) (*models.User, error) {
	if err := validateStruct(upd); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.Username != nil {
		user.Username = strings.TrimSpace(*upd.Username)
	}
	if upd.Email != nil && !strings.EqualFold(*upd.Email, user.Email) {
		email := strings.TrimSpace(*upd.Email)
		if other, err := s.userRepo.GetByEmail(ctx, email); err == nil && other.ID != user.ID {
			return nil, fmt.Errorf("'%s': %w", email, ErrEmailTaken)
		}
		user.Email = email
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.Gender != nil {
		user.Gender = *upd.Gender
	}
	if upd.Address != nil {
		user.Address = *upd.Address
	}

	var avatarErr error
	var oldAvatar, newAvatar string
	if avatar != nil {
		if urls, err := storeImages(ctx, s.blobs, "avatars/"+user.ID, []Upload{*avatar}); err != nil {
			avatarErr = err
		} else {
			oldAvatar, newAvatar = user.AvatarURL, urls[0]
			user.AvatarURL = newAvatar
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if newAvatar != "" {
			removeImages(ctx, s.blobs, []string{newAvatar})
		}
		if errors.Is(err, repositories.ErrConstraintViolation) {
			return nil, fmt.Errorf("'%s': %w", user.Email, ErrEmailTaken)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if oldAvatar != "" {
		for _, rmErr := range removeImages(ctx, s.blobs, []string{oldAvatar}) {
			logrus.WithError(rmErr).WithField("user_id", user.ID).Warn("Failed to remove previous avatar")
		}
	}
	if avatarErr != nil {
		logrus.WithError(avatarErr).WithField("user_id", user.ID).Warn("Profile saved without new avatar")
	}

	public := user.Public()
	return &public, avatarErr
}
