// Package auth implements admin sessions: bcrypt password login issuing an HS256 token, and
// per-request authentication that re-checks the user's role in the database.
package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/apperrors"
	"github.com/3lprints/storefront/internal/models"
)

// UserStore looks up users by email.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AdminPrincipal is the authenticated admin behind a request.
type AdminPrincipal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewService(users UserStore, secret string, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, secret: []byte(secret), ttl: ttl, log: log, now: time.Now}
}

// Authenticate resolves an Authorization header to an admin. Missing, malformed, expired or
// forged tokens and unknown users are Authentication errors; a live non-admin user is an
// Authorization error.
func (s *Service) Authenticate(ctx context.Context, header string) (AdminPrincipal, error) {
	// 1. --- Extract Bearer Token ---
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return AdminPrincipal{}, apperrors.Authentication("missing or malformed authorization header")
	}

	// 2. --- Verify Signature & Expiry ---
	claims, err := s.ValidateToken(strings.TrimSpace(parts[1]))
	if err != nil {
		s.log.Warn("rejected admin token", zap.Error(err))
		return AdminPrincipal{}, apperrors.Authentication("invalid or expired session")
	}

	// 3. --- Re-check Role Against the Live User ---
	user, err := s.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			s.log.Warn("admin token for unknown user", zap.String("email", claims.Subject))
			return AdminPrincipal{}, apperrors.Authentication("invalid or expired session")
		}
		return AdminPrincipal{}, err
	}
	if !user.IsAdmin() {
		s.log.Warn("non-admin attempted admin access", zap.String("email", user.Email), zap.String("role", user.Role))
		return AdminPrincipal{}, apperrors.Authorization("admin access required")
	}

	return AdminPrincipal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Login checks an admin's password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *models.User, error) {
	fail := apperrors.Authentication("invalid email or password")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return "", time.Time{}, nil, fail
		}
		return "", time.Time{}, nil, err
	}
	if user.PasswordHash == nil {
		return "", time.Time{}, nil, fail
	}

	pw := models.Password{Hash: *user.PasswordHash}
	ok, err := pw.Matches(password)
	if err != nil || !ok {
		s.log.Warn("failed admin login", zap.String("email", user.Email))
		return "", time.Time{}, nil, fail
	}
	if !user.IsAdmin() {
		return "", time.Time{}, nil, apperrors.Authorization("admin access required")
	}

	token, expires, err := s.GenerateToken(user.Email, user.Role)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	s.log.Info("admin logged in", zap.String("email", user.Email))
	return token, expires, user, nil
}
