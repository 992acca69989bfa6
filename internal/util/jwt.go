package util

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// TokenClaims 令牌中携带的身份信息。令牌由外部用户系统签发，这里只做校验。
type TokenClaims struct {
	UserID int
	Role   string
}

func GenerateToken(secret string, userID int, role string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	})

	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, errors.New("invalid user id claim")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = "customer"
	}
	return &TokenClaims{UserID: int(userID), Role: role}, nil
}
