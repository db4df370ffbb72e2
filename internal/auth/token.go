package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token fields the service relies on.
type Claims struct {
	UserID string
	Role   string
	Email  string
}

// TokenParser reads bearer tokens issued by the platform backend. With a
// secret it verifies HS256 signatures and expiry, otherwise it only decodes.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	p := &TokenParser{}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p
}

// Parse extracts Claims from tokenString.
func (p *TokenParser) Parse(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, errors.New("empty token")
	}

	claims := jwt.MapClaims{}
	var err error
	if p.secret != nil {
		_, err = jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			return p.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
	}
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}

	userID := stringClaim(claims, "sub")
	if userID == "" {
		userID = stringClaim(claims, "id")
	}
	if userID == "" {
		userID = stringClaim(claims, "_id")
	}
	if userID == "" {
		return Claims{}, errors.New("subject claim not found in token")
	}

	return Claims{
		UserID: userID,
		Role:   stringClaim(claims, "role"),
		Email:  stringClaim(claims, "email"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return value
}

// ExtractTokenFromRequest extracts the bearer token from an HTTP request
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}
