// Package middleware provides authentication, rate limiting, logging and
// tracing middleware for the HTTP server.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"forum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Token issuer and audience written into, and required of, every token.
const (
	TokenIssuer   = "forum-api"
	TokenAudience = "forum-client"
)

// Fiber locals set by the auth middleware.
const (
	LocalUserID   = "userID"
	LocalUsername = "username"
	localClaims   = "tokenClaims"
)

const blacklistPrefix = "blacklist:"

// Claims are the JWT claims issued at login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenAuth issues and verifies HS256 access tokens. Revoked token IDs are
// kept in Redis until the token would have expired; without Redis logout
// is a no-op and tokens stay valid until expiry.
type TokenAuth struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	now    func() time.Time
}

func NewTokenAuth(secret string, ttl time.Duration, rdb *redis.Client) *TokenAuth {
	return &TokenAuth{secret: []byte(secret), ttl: ttl, redis: rdb, now: time.Now}
}

// Issue signs a token for the user.
func (a *TokenAuth) Issue(userID uint, username string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}
	now := a.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies signature, expiry, issuer and audience and returns the claims.
func (a *TokenAuth) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return uint(id), nil
}

// Revoke blacklists the token's ID for the rest of its lifetime.
func (a *TokenAuth) Revoke(ctx context.Context, claims *Claims) error {
	if a.redis == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(a.now()); remaining > 0 {
			ttl = remaining
		}
	}
	return a.redis.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked. Redis errors count as not revoked.
func (a *TokenAuth) IsRevoked(ctx context.Context, jti string) bool {
	if a.redis == nil || jti == "" {
		return false
	}
	n, err := a.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		Logger.WarnContext(ctx, "token blacklist lookup failed", slog.String("error", err.Error()))
		return false
	}
	return n > 0
}

// Required rejects requests without a valid, unrevoked bearer token.
func (a *TokenAuth) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return unauthorized(c, "Authorization required")
		}
		claims, err := a.Parse(tokenString)
		if err != nil {
			return unauthorized(c, "Invalid or expired token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return unauthorized(c, "Invalid user ID in token")
		}
		if a.IsRevoked(c.UserContext(), claims.ID) {
			return unauthorized(c, "Token has been revoked")
		}
		setIdentity(c, userID, claims)
		return c.Next()
	}
}

// Optional records the caller's identity when a valid token is present and
// otherwise lets the request through anonymously.
func (a *TokenAuth) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}
		claims, err := a.Parse(tokenString)
		if err != nil {
			return c.Next()
		}
		userID, err := claims.UserID()
		if err != nil || a.IsRevoked(c.UserContext(), claims.ID) {
			return c.Next()
		}
		setIdentity(c, userID, claims)
		return c.Next()
	}
}

// UserID returns the authenticated user's ID, if any.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok
}

// Username returns the authenticated username, or "" for anonymous requests.
func Username(c *fiber.Ctx) string {
	name, _ := c.Locals(LocalUsername).(string)
	return name
}

// TokenClaims returns the verified claims of the current request.
func TokenClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(localClaims).(*Claims)
	return claims
}

func setIdentity(c *fiber.Ctx, userID uint, claims *Claims) {
	c.Locals(LocalUserID, userID)
	c.Locals(LocalUsername, claims.Username)
	c.Locals(localClaims, claims)
	// Auth runs per route group, after ContextMiddleware.
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}
