package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer — значение поля iss в токенах
const Issuer = "drill-dungeon"

var (
	// ErrInvalidToken возвращается для просроченных, поддельных и битых токенов
	ErrInvalidToken = errors.New("недействительный токен")
	// ErrWeakSecret — секрет короче 32 байт
	ErrWeakSecret = errors.New("secret key must be at least 32 bytes")
)

// Claims — данные токена оператора
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// TokenService выпускает и проверяет HS256 токены операторов API
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService создаёт сервис из секрета в base64
func NewTokenService(secret string) (*TokenService, error) {
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("секрет не в base64: %w", err)
	}
	if len(decoded) < 32 {
		return nil, ErrWeakSecret
	}
	return &TokenService{secret: decoded, now: time.Now}, nil
}

// Generate выпускает токен для оператора на ttl
func (ts *TokenService) Generate(operator string, ttl time.Duration) (string, error) {
	now := ts.now()
	claims := &Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// Validate проверяет подпись, срок и издателя токена
func (ts *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ts.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(ts.now))

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret генерирует новый секрет в base64
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
