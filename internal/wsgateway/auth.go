package wsgateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AnonymousUser is the user ID of connections when token checks are disabled
const AnonymousUser = "anonymous"

// ErrMissingToken is returned when a request carries no token
var ErrMissingToken = errors.New("missing token")

// AuthManager validates HMAC signed JWTs presented by WebSocket clients
type AuthManager struct {
	jwtSecret []byte
}

// NewAuthManager creates a new auth manager. An empty secret disables checks.
func NewAuthManager(jwtSecret string) *AuthManager {
	return &AuthManager{
		jwtSecret: []byte(jwtSecret),
	}
}

// Enabled reports whether tokens are checked
func (a *AuthManager) Enabled() bool {
	return len(a.jwtSecret) > 0
}

// Authenticate returns the user behind a WebSocket upgrade request. The token
// is read from the Authorization header or the "token" query parameter.
func (a *AuthManager) Authenticate(r *http.Request) (string, error) {
	if !a.Enabled() {
		return AnonymousUser, nil
	}

	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		var err error
		if token, err = a.ExtractTokenFromHeader(header); err != nil {
			return "", err
		}
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return a.ValidateToken(token)
}

// ValidateToken validates a JWT and returns the user ID from the "user_id"
// claim, falling back to "sub"
func (a *AuthManager) ValidateToken(tokenString string) (string, error) {
	if !a.Enabled() {
		return AnonymousUser, nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("user_id not found in token")
}

// ExtractTokenFromHeader extracts a JWT from an Authorization header value,
// with or without the "Bearer" scheme
func (a *AuthManager) ExtractTokenFromHeader(authHeader string) (string, error) {
	parts := strings.Fields(authHeader)
	switch len(parts) {
	case 0:
		return "", fmt.Errorf("authorization header is empty")
	case 1:
		return parts[0], nil
	case 2:
		if !strings.EqualFold(parts[0], "bearer") {
			return "", fmt.Errorf("invalid authorization header format")
		}
		return parts[1], nil
	default:
		return "", fmt.Errorf("invalid authorization header format")
	}
}
