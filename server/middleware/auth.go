// Package middleware holds the echo middleware shared by the API routes.
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apierrors "github.com/hrygo/execfi/server/internal/errors"
	"github.com/hrygo/execfi/internal/observability"
)

const (
	// Issuer is the iss claim of tokens minted by the auth gateway.
	Issuer = "execfi"

	bearerPrefix = "Bearer "
	identityKey  = "identity"
)

// Claims is the verified identity issued by the auth gateway. The subject is
// the user id.
type Claims struct {
	WalletAddress string `json:"walletAddress"`
	Chain         string `json:"chain"`
	jwt.RegisteredClaims
}

// Identity is the {userId, walletAddress, chain} triple every request runs as.
type Identity struct {
	UserID        string
	WalletAddress string
	Chain         string
}

// IssueToken signs an HS256 access token for the identity.
func IssueToken(secret string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	now := time.Now()
	claims := &Claims{
		WalletAddress: id.WalletAddress,
		Chain:         id.Chain,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return token, nil
}

// ParseToken verifies signature, expiry and issuer and returns the identity.
func ParseToken(secret, raw string) (*Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}
	if claims.Subject == "" || claims.WalletAddress == "" {
		return nil, errors.New("token is missing subject or wallet")
	}
	return &Identity{
		UserID:        claims.Subject,
		WalletAddress: claims.WalletAddress,
		Chain:         claims.Chain,
	}, nil
}

// BearerToken extracts the token of an Authorization header.
func BearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(bearerPrefix):]), true
}

// JWTAuth rejects requests without a valid bearer token. The token may also
// travel in the "token" query parameter, which browsers need for websocket
// upgrades.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return apierrors.Unauthorized("authentication required")
			}
			id, err := ParseToken(secret, raw)
			if err != nil {
				return apierrors.Wrap(err, apierrors.ErrCodeUnauthorized, "invalid or expired token")
			}
			c.Set(identityKey, id)
			req := c.Request()
			if reqCtx, ok := observability.FromContext(req.Context()); ok {
				reqCtx.UserID = id.UserID
			}
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

// CurrentIdentity returns the identity set by JWTAuth.
func CurrentIdentity(c echo.Context) (*Identity, bool) {
	id, ok := c.Get(identityKey).(*Identity)
	return id, ok
}

type identityCtxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*Identity)
	return id, ok
}
