package utils

import (
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var JWTSecret []byte

func init() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Development fallback; production sets JWT_SECRET in the environment.
		log.Printf("Warning: JWT_SECRET not found in environment, using default secret")
		secret = "WorkorderDevSecret1945"
	}
	JWTSecret = []byte(secret)
}

type CustomClaims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	CompanyID uint   `json:"company_id"`
	jwt.RegisteredClaims
}

func GenerateToken(userID uint, role string, companyID uint) (string, error) {
	claims := &CustomClaims{
		UserID:    userID,
		Role:      role,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "workorder-app",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(JWTSecret)
	if err != nil {
		log.Printf("Error generating token: %v", err)
		return "", err
	}
	return tokenString, nil
}

func ParseToken(tokenString string) (*CustomClaims, error) {
	if IsTokenBlacklisted(tokenString) {
		return nil, errors.New("token has been revoked")
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Logout revocation list. Entries expire together with the token itself.
var (
	blacklistMu sync.Mutex
	blacklist   = make(map[string]time.Time)
)

func BlacklistToken(tokenString string, expiresAt time.Time) {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	blacklist[tokenString] = expiresAt

	now := time.Now()
	for t, exp := range blacklist {
		if exp.Before(now) {
			delete(blacklist, t)
		}
	}
}

func IsTokenBlacklisted(tokenString string) bool {
	blacklistMu.Lock()
	defer blacklistMu.Unlock()
	exp, ok := blacklist[tokenString]
	if !ok {
		return false
	}
	if exp.Before(time.Now()) {
		delete(blacklist, tokenString)
		return false
	}
	return true
}
