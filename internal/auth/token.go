package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/models"
)

// Token verification failure kinds. Expired tokens are surfaced separately
// from malformed or forged ones so the client can refresh instead of
// forcing a re-login.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the payload carried by both access and refresh tokens.
type Claims struct {
	UserID   uint            `json:"user_id"`
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-limited tokens. It is
// stateless; identity freshness is re-checked against the credential store
// by the authentication middleware.
type TokenService struct {
	cfg config.JWTConfig
	now func() time.Time
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// AccessTTL reports how long issued access tokens stay valid.
func (s *TokenService) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}

// IssueAccessToken mints a short-lived access token for the user.
func (s *TokenService) IssueAccessToken(user *models.User) (string, error) {
	return s.issue(user, []byte(s.cfg.AccessSecret), s.cfg.AccessTTL)
}

// IssueRefreshToken mints a longer-lived refresh token, signed with a
// separate secret, used only to obtain new access tokens.
func (s *TokenService) IssueRefreshToken(user *models.User) (string, error) {
	return s.issue(user, []byte(s.cfg.RefreshSecret), s.cfg.RefreshTTL)
}

// VerifyAccessToken parses and validates an access token.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	return s.verify(token, []byte(s.cfg.AccessSecret))
}

// VerifyRefreshToken parses and validates a refresh token.
func (s *TokenService) VerifyRefreshToken(token string) (*Claims, error) {
	return s.verify(token, []byte(s.cfg.RefreshSecret))
}

func (s *TokenService) issue(user *models.User, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
