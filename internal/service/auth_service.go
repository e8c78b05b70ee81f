package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lingoquest/internal/apperr"
	"lingoquest/internal/database"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/repository"
	"lingoquest/internal/security"
	"lingoquest/internal/validation"
)

const (
	msgEmailTaken         = "A user with this email already exists."
	msgUsernameTaken      = "A user with that username already exists."
	msgInvalidCredentials = "No active account found with the given credentials."
	msgInvalidToken       = "Given token not valid for any token type."
)

// WelcomeMailer sends the post-registration greeting
type WelcomeMailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, username string) error
}

// RegisterInput is the registration payload
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthService handles registration, token issuance and token verification
type AuthService struct {
	db       *database.DB
	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	tokens   *security.TokenIssuer
	mailer   WelcomeMailer
	log      *logger.Logger
}

// NewAuthService creates a new auth service. mailer may be nil.
func NewAuthService(
	db *database.DB,
	users *repository.UserRepository,
	profiles *repository.ProfileRepository,
	tokens *security.TokenIssuer,
	mailer WelcomeMailer,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		db:       db,
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		mailer:   mailer,
		log:      log.With("service", "auth"),
	}
}

// Register creates a user and its profile. The password is stored only as a
// bcrypt hash.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validation.Merge(
		validation.ValidateUsername(in.Username),
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
	); err != nil {
		return nil, err
	}
	if err := s.checkAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *models.User
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		created, err := s.users.CreateUser(ctx, tx, in.Username, in.Email, passwordHash)
		if err != nil {
			return err
		}
		if err := s.profiles.Create(ctx, tx, created.ID); err != nil {
			return err
		}
		user = created
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent registration
		if availErr := s.checkAvailable(ctx, in.Username, in.Email); availErr != nil {
			return nil, availErr
		}
		return nil, apperr.Validation(msgEmailTaken, map[string]string{"email": msgEmailTaken})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	s.sendWelcome(ctx, user)
	return user, nil
}

// checkAvailable reports taken emails and usernames as validation errors
func (s *AuthService) checkAvailable(ctx context.Context, username, email string) error {
	fields := map[string]string{}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		fields["email"] = msgEmailTaken
	}

	existing, err = s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		fields["username"] = msgUsernameTaken
	}

	if len(fields) == 0 {
		return nil
	}
	msg := msgEmailTaken
	if _, ok := fields["email"]; !ok {
		msg = msgUsernameTaken
	}
	return apperr.Validation(msg, fields)
}

// sendWelcome mails the new user; failures are logged only
func (s *AuthService) sendWelcome(ctx context.Context, user *models.User) {
	if s.mailer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.Username); err != nil {
		s.log.Warn("welcome email failed", "user_id", user.ID, "error", err)
	}
}

// Login checks credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.AccessToken, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		fields := map[string]string{}
		if strings.TrimSpace(username) == "" {
			fields["username"] = apperr.MsgRequired
		}
		if password == "" {
			fields["password"] = apperr.MsgRequired
		}
		return nil, apperr.Validation("Invalid input.", fields)
	}

	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		s.log.Info("login rejected", "username", username)
		return nil, apperr.Unauthorized(msgInvalidCredentials)
	}

	raw, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &models.AccessToken{Access: raw, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to its user
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	userID, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, msgInvalidToken, err)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}
	if user == nil {
		return nil, apperr.Unauthorized("User not found.")
	}
	return user, nil
}
