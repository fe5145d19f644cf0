// services/auth.go
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"vip-passport/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// TelegramUser is the "user" object embedded in Mini App init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Claims is the access token body.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	BotToken    string
	InitDataTTL time.Duration
	AdminIDs    []int64
}

type AuthService struct {
	Users *UserService
	cfg   AuthConfig
	Log   logrus.FieldLogger
	Now   func() time.Time
}

func NewAuthService(users *UserService, cfg AuthConfig, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		Users: users,
		cfg:   cfg,
		Log:   log.WithField("component", "auth"),
		Now:   time.Now,
	}
}

// LoginWithTelegram verifies init data, finds or creates the user and issues an access token.
func (s *AuthService) LoginWithTelegram(ctx context.Context, initData string) (string, *models.User, error) {
	tgUser, err := s.VerifyInitData(initData)
	if err != nil {
		s.Log.WithError(err).Warn("telegram init data rejected")
		return "", nil, err
	}
	user, err := s.Users.FindOrCreateByTelegram(ctx, tgUser.ID)
	if err != nil {
		return "", nil, err
	}
	if !user.IsAdmin && s.isAdminID(tgUser.ID) {
		if err := s.Users.DB.WithContext(ctx).Model(user).Update("is_admin", true).Error; err != nil {
			return "", nil, fmt.Errorf("promote admin: %w", err)
		}
		user.IsAdmin = true
	}
	token, err := s.IssueToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// VerifyInitData checks the Mini App signature: the secret is HMAC-SHA256("WebAppData", bot token)
// and the hash covers the sorted key=value lines of every other field.
func (s *AuthService) VerifyInitData(initData string) (*TelegramUser, error) {
	if s.cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram login is not configured: %w", ErrUnauthorized)
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed init data", ErrInvalidInput)
	}
	hash := values.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("%w: init data has no hash", ErrInvalidInput)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}

	if !hmac.Equal([]byte(signInitData(s.cfg.BotToken, strings.Join(lines, "\n"))), []byte(hash)) {
		return nil, fmt.Errorf("init data signature mismatch: %w", ErrUnauthorized)
	}

	if s.cfg.InitDataTTL > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad auth_date", ErrInvalidInput)
		}
		if s.Now().Sub(time.Unix(authDate, 0)) > s.cfg.InitDataTTL {
			return nil, fmt.Errorf("init data expired: %w", ErrUnauthorized)
		}
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, fmt.Errorf("%w: init data has no user", ErrInvalidInput)
	}
	return &user, nil
}

func signInitData(botToken, dataCheck string) string {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheck))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *AuthService) IssueToken(userID string) (string, error) {
	now := s.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "vip-passport",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an access token and returns its user id.
func (s *AuthService) ParseToken(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.Now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	return claims.UserID, nil
}

func (s *AuthService) isAdminID(id int64) bool {
	for _, a := range s.cfg.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}
