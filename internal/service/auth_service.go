package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ledger-gateway/internal/auth"
	"github.com/spec-kit/ledger-gateway/internal/config"
	"github.com/spec-kit/ledger-gateway/internal/domain"
	"github.com/spec-kit/ledger-gateway/internal/events"
	"github.com/spec-kit/ledger-gateway/internal/repository"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

const badCredentials = "Bad credentials"

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*@[^-][A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*(\.[A-Za-z]{2,})$`)

// LoginResult is returned after a successful credential check.
type LoginResult struct {
	Token     string
	ExpiresIn int
	User      *domain.User
}

// ResearcherDetails is the editable part of a researcher record.
type ResearcherDetails struct {
	Email       string
	FirstName   string
	LastName    string
	Affiliation string
}

// AuthService coordinates login and directory management.
type AuthService struct {
	users          repository.UserRepository
	tokens         *auth.TokenCodec
	hasher         *auth.PasswordHasher
	throttle       *auth.LoginThrottle
	dispatcher     events.Dispatcher
	passwordLength int
	logger         *zap.Logger
	now            func() time.Time
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenCodec
	Throttle   *auth.LoginThrottle
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:          deps.UserRepo,
		tokens:         deps.Tokens,
		hasher:         auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		throttle:       deps.Throttle,
		dispatcher:     deps.Dispatcher,
		passwordLength: cfg.Auth.GeneratedPasswordLength,
		logger:         logger,
		now:            time.Now,
	}
}

// Login verifies the credentials and issues a token carrying the user's role.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if !s.throttle.Allowed(ctx, username) {
		return nil, apperrors.NewTooManyRequests("too many failed login attempts")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.throttle.RecordFailure(ctx, username)
		return nil, apperrors.NewUnauthorized(badCredentials)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.throttle.RecordFailure(ctx, username)
		return nil, apperrors.NewUnauthorized(badCredentials)
	}
	s.throttle.Reset(ctx, username)

	token, err := s.tokens.Issue(user.ID, user.Role, s.now())
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresIn: s.tokens.LifetimeMinutes(), User: user}, nil
}

// RegisterResearcher creates a researcher with a generated username and password.
// The credentials reach the researcher only through the user_registered event.
func (s *AuthService) RegisterResearcher(ctx context.Context, actor *auth.Identity, details ResearcherDetails) (*domain.User, error) {
	details = trimDetails(details)
	if !validEmail(details.Email) {
		return nil, apperrors.NewValidationError("email address is not valid", map[string]any{"email": details.Email})
	}
	if details.FirstName == "" || details.LastName == "" {
		return nil, apperrors.NewValidationError("first and last name are required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, details.Email); err == nil {
		return nil, apperrors.NewConflict("user with this email already exists", map[string]any{"email": details.Email})
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	username, err := s.generateUsername(ctx, details.FirstName, details.LastName)
	if err != nil {
		return nil, err
	}
	password, err := auth.GeneratePassword(s.passwordLength)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        details.Email,
		PasswordHash: hash,
		FirstName:    details.FirstName,
		LastName:     details.LastName,
		Affiliation:  details.Affiliation,
		Role:         domain.RoleResearcher,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapUserError(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, actor, events.UserRegisteredPayload{
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		Password:  password,
	})
	return user, nil
}

// ListResearchers returns every researcher account.
func (s *AuthService) ListResearchers(ctx context.Context) ([]domain.Researcher, error) {
	users, err := s.users.ListByRole(ctx, domain.RoleResearcher)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	out := make([]domain.Researcher, 0, len(users))
	for _, u := range users {
		out = append(out, u.AsResearcher())
	}
	return out, nil
}

// UpdateResearcher replaces the first name, last name and affiliation of a user.
func (s *AuthService) UpdateResearcher(ctx context.Context, actor *auth.Identity, userID string, details ResearcherDetails) (*domain.User, error) {
	details = trimDetails(details)
	if details.FirstName == "" || details.LastName == "" {
		return nil, apperrors.NewValidationError("first and last name are required", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	user.FirstName = details.FirstName
	user.LastName = details.LastName
	user.Affiliation = details.Affiliation
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapUserError(err)
	}

	s.publish(ctx, events.EventUserUpdated, user.ID, actor, nil)
	return user, nil
}

// DeleteResearcher removes a user. Tokens already issued to it stop working
// because the gate resolves the subject on every request.
func (s *AuthService) DeleteResearcher(ctx context.Context, actor *auth.Identity, userID string) error {
	if actor != nil && actor.Subject == userID {
		return apperrors.NewConflict("cannot delete the calling account", nil)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return mapUserError(err)
	}
	s.publish(ctx, events.EventUserDeleted, userID, actor, nil)
	return nil
}

// ChangePassword replaces the password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return apperrors.NewValidationError("new password must not be empty", nil)
	}
	if !s.throttle.Allowed(ctx, username) {
		return apperrors.NewTooManyRequests("too many failed login attempts")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.throttle.RecordFailure(ctx, username)
		return apperrors.NewUnauthorized(badCredentials)
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		s.throttle.RecordFailure(ctx, username)
		return apperrors.NewUnauthorized(badCredentials)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return mapUserError(err)
	}
	s.throttle.Reset(ctx, username)

	s.publish(ctx, events.EventPasswordChanged, user.ID, &auth.Identity{Subject: user.ID, Role: user.Role, User: user}, nil)
	return nil
}

// EnsureAdmin creates the administrator account if its username is free.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.Info("bootstrap administrator created", zap.String("username", username), zap.String("user_id", admin.ID))
	return nil
}

// generateUsername builds first initial + last name, lowercased, and appends
// one more than the largest numeric suffix already taken.
func (s *AuthService) generateUsername(ctx context.Context, firstName, lastName string) (string, error) {
	base := strings.ToLower(string([]rune(firstName)[:1]) + strings.Join(strings.Fields(lastName), ""))

	taken, err := s.users.ListUsernamesByPrefix(ctx, base)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return nextUsername(base, taken), nil
}

func nextUsername(base string, taken []string) string {
	largest := int64(-1)
	for _, name := range taken {
		suffix := strings.TrimPrefix(name, base)
		if suffix == name {
			continue
		}
		if suffix == "" {
			largest = max(largest, 0)
			continue
		}
		n, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil || n < 0 {
			continue
		}
		largest = max(largest, n)
	}
	if largest < 0 {
		return base
	}
	return base + strconv.FormatInt(largest+1, 10)
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID string, actor *auth.Identity, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actorOf(actor),
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("type", string(eventType)), zap.String("subject_id", subjectID), zap.Error(err))
	}
}

func actorOf(identity *auth.Identity) events.Actor {
	if identity == nil {
		return events.Actor{}
	}
	actor := events.Actor{UserID: identity.Subject, Role: identity.Role}
	if identity.User != nil {
		actor.Username = identity.User.Username
	}
	return actor
}

func validEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	if at < 1 || at > 64 {
		return false
	}
	return emailPattern.MatchString(email)
}

func trimDetails(d ResearcherDetails) ResearcherDetails {
	return ResearcherDetails{
		Email:       strings.TrimSpace(d.Email),
		FirstName:   strings.TrimSpace(d.FirstName),
		LastName:    strings.TrimSpace(d.LastName),
		Affiliation: strings.TrimSpace(d.Affiliation),
	}
}

func mapUserError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NewNotFound("user", nil)
	case errors.Is(err, domain.ErrEmailTaken):
		return apperrors.NewConflict("user with this email already exists", nil)
	case errors.Is(err, domain.ErrUsernameTaken):
		return apperrors.NewConflict("generated username already taken, retry", nil)
	default:
		return apperrors.NewInternalError(err)
	}
}
