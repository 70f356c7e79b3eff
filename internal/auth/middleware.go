package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ledger-gateway/internal/domain"
	apperrors "github.com/spec-kit/ledger-gateway/pkg/util/errorutil"
)

const identityKey = "auth_identity"

// Rejection messages written to the client as the 401 body.
const (
	MsgMissingToken = "missing token"
	MsgInvalidToken = "invalid token"
	MsgTokenExpired = "token expired"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	Subject string
	Role    domain.Role
	User    *domain.User
}

// UserDirectory resolves token subjects to live user records.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// Gate validates bearer tokens and attaches the caller identity.
type Gate struct {
	tokens *TokenCodec
	users  UserDirectory
	logger *zap.Logger
	public map[string]struct{}
	now    func() time.Time
}

// NewGate constructs the middleware. publicPaths may be reached without a token.
func NewGate(tokens *TokenCodec, users UserDirectory, logger *zap.Logger, publicPaths ...string) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[routeKey(p)] = struct{}{}
	}
	return &Gate{tokens: tokens, users: users, logger: logger, public: public, now: time.Now}
}

// Handle runs header extraction, decode, role check, subject lookup and expiry
// check in that order. The first failure ends the request.
func (g *Gate) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		if _, allowed := g.public[routeKey(c.Path())]; allowed {
			return c.Next()
		}
		return g.reject(c, "missing_token", MsgMissingToken, nil)
	}

	claims, err := g.tokens.Decode(token)
	if err != nil {
		return g.reject(c, "decode_failed", MsgInvalidToken, err)
	}

	if !claims.Role.Known() {
		return g.reject(c, "unknown_role", MsgInvalidToken, nil)
	}

	user, err := g.users.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return g.reject(c, "subject_not_found", MsgInvalidToken, nil)
		}
		g.logger.Error("subject lookup failed", zap.String("subject", claims.Subject), zap.Error(err))
		return apperrors.NewInternalError(err)
	}

	if g.tokens.IsExpired(claims, g.now()) {
		return g.reject(c, "token_expired", MsgTokenExpired, nil)
	}

	c.Locals(identityKey, &Identity{Subject: claims.Subject, Role: claims.Role, User: user})
	return c.Next()
}

func (g *Gate) reject(c *fiber.Ctx, reason, message string, cause error) error {
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	g.logger.Debug("request rejected", fields...)
	return apperrors.NewUnauthorized(message)
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok
}

// routeKey folds a request path the way the router matches it: case-insensitive,
// trailing slash ignored.
func routeKey(path string) string {
	key := strings.ToLower(strings.TrimRight(path, "/"))
	if key == "" {
		return "/"
	}
	return key
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
