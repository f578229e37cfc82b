package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoCustomer — токен валиден, но не содержит идентификатора клиента.
var ErrNoCustomer = errors.New("token has no customer id")

// CustomClaims описывает данные клиента, хранящиеся в JWT.
type CustomClaims struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken создаёт токен для клиента. Subject совпадает с customerID.
func (j *MakerImpl) GenerateToken(customerID, email, role string) (string, error) {
	const op = "jwt.GenerateToken"
	if customerID == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNoCustomer)
	}
	now := time.Now()
	claims := CustomClaims{
		CustomerID: customerID,
		Email:      email,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.CustomerID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoCustomer)
	}
	return claims, nil
}
