package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inamate/sculpt/internal/typeid"
)

const tokenTTL = 24 * time.Hour

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidDisplayName = errors.New("invalid display name")
)

// Service issues and validates guest session tokens. Scenes are shared by
// link, so there are no accounts: a token only names the user in presence
// and operation logs.
type Service struct {
	jwtSecret []byte
	now       func() time.Time
}

func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Guest creates a new anonymous user and returns a token for it.
func (s *Service) Guest(displayName string) (*AuthResult, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "Guest"
	}
	if len(displayName) > 64 {
		return nil, ErrInvalidDisplayName
	}

	user := User{ID: typeid.NewUserID(), DisplayName: displayName}
	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// ValidateToken checks the signature and expiry of tokenString and returns
// the user it was issued to.
func (s *Service) ValidateToken(tokenString string) (*User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["sub"].(string)
	if !ok || typeid.Validate(userID, typeid.PrefixUser) != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)

	return &User{ID: userID, DisplayName: name}, nil
}

func (s *Service) issueToken(user User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"name": user.DisplayName,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
