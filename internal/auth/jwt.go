package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"antirisk.com/intelligence-unit/internal/config"
)

// SessionSubject identifies the single local operator session.
const SessionSubject = "executive"

// GenerateSessionToken issues the token handed out when the gate reaches
// READY; it guards every subsequent API call.
func GenerateSessionToken() (string, error) {
	claims := jwt.MapClaims{
		"sub": SessionSubject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ValidateSessionToken returns the token subject when valid.
func ValidateSessionToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, _ := claims["sub"].(string)
		if sub != SessionSubject {
			return "", fmt.Errorf("unknown token subject")
		}
		return sub, nil
	}

	return "", fmt.Errorf("invalid token")
}
