package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"weel-backend/internal/config"
	"weel-backend/internal/models"
)

var (
	ErrPhoneNotNumeric = errors.New("phone number must contain digits only")
	ErrPhoneBadLength  = errors.New("phone number must be exactly 9 digits")

	ErrTokenIssue   = errors.New("failed to issue token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")

	ErrForbidden    = errors.New("forbidden")
	ErrUserNotFound = errors.New("user not found")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims — состав подписанного токена: идентичность, роль, тип токена.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// UserStore — доступ к пользователям, нужный авторизации (остальной CRUD
// пользователей живёт в репозитории и хендлерах).
type UserStore interface {
	GetByID(id uuid.UUID) (*models.User, error)
}

// AuthService — валидация номера телефона, выпуск и разбор подписанных
// access/refresh токенов, ролевые предикаты.
type AuthService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	users      UserStore
}

func NewAuthService(cfg *config.JWTConfig, users UserStore) *AuthService {
	return &AuthService{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL(),
		refreshTTL: cfg.RefreshTTL(),
		users:      users,
	}
}

// ValidatePhone — номер должен быть цифровым и ровно из 9 цифр;
// нарушения различаются в сообщении.
func (s *AuthService) ValidatePhone(raw string) (string, error) {
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", ErrPhoneNotNumeric
		}
	}
	if len(raw) != 9 {
		return "", ErrPhoneBadLength
	}
	return raw, nil
}

func (s *AuthService) issueToken(userID uuid.UUID, role, tokenType string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:    userID.String(),
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenIssue, err)
	}
	return signed, nil
}

func (s *AuthService) IssueAccessToken(userID uuid.UUID, role string) (string, error) {
	return s.issueToken(userID, role, TokenTypeAccess, s.accessTTL)
}

func (s *AuthService) IssueRefreshToken(userID uuid.UUID, role string) (string, error) {
	return s.issueToken(userID, role, TokenTypeRefresh, s.refreshTTL)
}

// DecodeToken — разбор и проверка токена. Истечение срока отличается от
// прочей невалидности; токен без user_id отклоняется.
func (s *AuthService) DecodeToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// принимаем только HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id claim", ErrTokenInvalid)
	}
	return claims, nil
}

// RequireRole — роль в токене должна совпадать с ожидаемой классом эндпоинта.
func (s *AuthService) RequireRole(claims *Claims, role string) error {
	if claims.Role != role {
		return ErrForbidden
	}
	return nil
}

// CurrentUser — резолвит идентичность из claims в живого пользователя.
func (s *AuthService) CurrentUser(claims *Claims) (*models.User, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.users.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// RefreshAccessToken — выпустить новый access по refresh-токену той же роли.
func (s *AuthService) RefreshAccessToken(refreshToken, requiredRole string) (string, error) {
	claims, err := s.DecodeToken(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", ErrTokenInvalid
	}
	if err := s.RequireRole(claims, requiredRole); err != nil {
		return "", err
	}
	user, err := s.CurrentUser(claims)
	if err != nil {
		return "", err
	}
	return s.IssueAccessToken(user.ID, claims.Role)
}
