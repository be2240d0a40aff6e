package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/hexrange/pkg/models"
)

// JWTValidator checks HS256 tokens signed with a shared secret
type JWTValidator struct {
	secret []byte
	issuer string
}

// Claims represents the JWT claims accepted by the service
type Claims struct {
	Username string `json:"username"`
	Scope    string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTValidator creates a validator; an empty issuer accepts any issuer
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret), issuer: issuer}
}

// IssueToken signs a token for subject valid for ttl
func (v *JWTValidator) IssueToken(subject, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ValidateToken validates a JWT token and returns the caller
func (v *JWTValidator) ValidateToken(tokenString string) (*models.Client, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	return &models.Client{
		ID:       claims.Subject,
		Username: username,
		Scope:    claims.Scope,
	}, nil
}

var errMissingToken = errors.New("missing authentication token")

// authenticate returns the caller of r, or an anonymous client when auth is disabled
func (s *Server) authenticate(r *http.Request) (*models.Client, error) {
	if s.jwtValidator == nil {
		return models.Anonymous(), nil
	}
	tokenString := extractToken(r)
	if tokenString == "" {
		return nil, errMissingToken
	}
	return s.jwtValidator.ValidateToken(tokenString)
}

type clientKey struct{}

// requireAuth rejects unauthenticated requests and stores the caller in the context
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, err := s.authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), clientKey{}, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientFrom(ctx context.Context) *models.Client {
	if c, ok := ctx.Value(clientKey{}).(*models.Client); ok {
		return c
	}
	return models.Anonymous()
}

// extractToken looks in the websocket subprotocol header, the Authorization
// header and finally the token query parameter
func extractToken(r *http.Request) string {
	// Format: "access_token, <token>"
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		parts := strings.Split(protocols, ",")
		if len(parts) == 2 && strings.TrimSpace(parts[0]) == "access_token" {
			return strings.TrimSpace(parts[1])
		}
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}

	return r.URL.Query().Get("token")
}
