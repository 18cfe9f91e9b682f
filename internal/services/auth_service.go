package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
	"hkiapp/internal/utils"
)

// UserStore is the account persistence used by auth and user management.
type UserStore interface {
	List(ctx context.Context) ([]models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	Update(ctx context.Context, id int64, upd models.UserUpdate) (models.User, error)
	Delete(ctx context.Context, id int64) error
	TouchSignIn(ctx context.Context, id int64) error
}

type AuthService struct {
	Users     UserStore
	Secret    []byte
	TokenTTL  time.Duration
	RequestID string
}

const invalidLogin = "Email atau password salah"

// Login checks the password and issues a session token.
func (s AuthService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if domain.IsNotFound(err) {
			return "", models.User{}, domain.AuthError{Msg: invalidLogin, Unauthenticated: true}
		}
		return "", models.User{}, fmt.Errorf("gagal query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", models.User{}, domain.AuthError{Msg: invalidLogin, Unauthenticated: true}
	}

	token, err := IssueToken(s.Secret, u, s.TokenTTL)
	if err != nil {
		return "", models.User{}, fmt.Errorf("gagal membuat token: %w", err)
	}
	if err := s.Users.TouchSignIn(ctx, u.ID); err != nil {
		utils.LogWarn(s.RequestID, "auth", "login", "gagal mencatat waktu login", err)
	}
	utils.LogEvent(s.RequestID, "auth", "login", fmt.Sprintf("user_id=%d", u.ID))
	return token, u, nil
}

// IssueToken signs {user_id, role, exp} with HS256.
func IssueToken(secret []byte, u models.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// ParseToken verifies a session token and returns the caller identity.
func ParseToken(secret []byte, raw string) (domain.RequestContext, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.RequestContext{}, domain.AuthError{Msg: "Token tidak valid atau kedaluwarsa.", Unauthenticated: true}
	}

	// numbers decode as float64 from the JSON payload
	uid, ok := claims["user_id"].(float64)
	if !ok || uid <= 0 {
		return domain.RequestContext{}, domain.AuthError{Msg: "Token tidak valid.", Unauthenticated: true}
	}
	role, _ := claims["role"].(string)
	return domain.RequestContext{UserID: domain.ID(uid), Role: role}, nil
}

// HashPassword wraps bcrypt with the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("gagal meng-hash password: %w", err)
	}
	return string(hash), nil
}
