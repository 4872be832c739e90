package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rhportal/internal/domain/access"
)

// UserClaims is the "user" object of the credential. Rank decodes from either
// a string or a number; anything else becomes access.NoRank.
type UserClaims struct {
	Identifier  string      `json:"identifier"`
	Rank        access.Rank `json:"rank"`
	DisplayName string      `json:"displayName,omitempty"`
}

// Claims is the structured credential shared by the cookie mirror and API clients:
// {"isAuthenticated": true, "user": {"identifier": "...", "rank": "3"}}.
type Claims struct {
	IsAuthenticated bool       `json:"isAuthenticated"`
	User            UserClaims `json:"user"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.RegisteredClaims.IssuedAt = jwt.NewNumericDate(now)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// HashID is how session ids are stored server side.
func HashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

func claimsFor(s *Session) Claims {
	return Claims{
		IsAuthenticated: true,
		User: UserClaims{
			Identifier:  s.Subject.Identifier,
			Rank:        s.Subject.Rank,
			DisplayName: s.Subject.DisplayName,
		},
		RegisteredClaims: jwt.RegisteredClaims{ID: s.ID, Subject: s.Subject.Identifier},
	}
}

// sessionFromClaims validates the decoded credential once; every later
// consumer works with the canonical Subject.
func sessionFromClaims(claims *Claims, token string) (*Session, error) {
	if !claims.IsAuthenticated {
		return nil, ErrMissing
	}
	if claims.User.Identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrMalformed)
	}
	if !claims.User.Rank.Valid() {
		return nil, fmt.Errorf("%w: invalid rank", ErrMalformed)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformed)
	}
	s := &Session{
		ID:    claims.ID,
		Token: token,
		Subject: Subject{
			Identifier:  claims.User.Identifier,
			DisplayName: claims.User.DisplayName,
			Rank:        claims.User.Rank,
		},
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
