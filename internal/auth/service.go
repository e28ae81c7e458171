// Package auth issues and checks the bearer tokens that guard catalog administration.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johnrirwin/devicedesk/internal/config"
	"github.com/johnrirwin/devicedesk/internal/logging"
)

// RoleAdmin is the only role allowed to mutate the catalog
const RoleAdmin = "admin"

const minSecretLength = 32

// Claims are the JWT claims carried by an admin token
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles admin token operations
type Service struct {
	config config.AuthConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a token service. It returns nil when no secret is configured,
// which leaves the admin routes open.
func NewService(cfg config.AuthConfig, logger *logging.Logger) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", minSecretLength)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &Service{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// IssueToken signs an admin token for subject
func (s *Service) IssueToken(subject string) (string, time.Time, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", time.Time{}, &AuthError{Code: "invalid_input", Message: "subject is required"}
	}

	now := s.now()
	expiresAt := now.Add(s.config.TokenTTL)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.config.JWTIssuer,
			Audience:  jwt.ClaimStrings{s.config.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("Issued admin token", logging.WithFields(map[string]interface{}{
		"subject":    subject,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	}))
	return signed, expiresAt, nil
}

// ValidateToken checks signature, issuer, audience, expiry and role and returns the subject
func (s *Service) ValidateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", &AuthError{Code: "invalid_token", Message: "token is required"}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.config.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.JWTIssuer))
	}
	if s.config.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(s.config.JWTAudience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", &AuthError{Code: "invalid_token", Message: "token has expired"}
		}
		return "", &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
	}
	if !token.Valid {
		return "", &AuthError{Code: "invalid_token", Message: "invalid token claims"}
	}

	if claims.Role != RoleAdmin {
		return "", &AuthError{Code: "forbidden", Message: "admin role required"}
	}
	if claims.Subject == "" {
		return "", &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}

	return claims.Subject, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}
