// Package token emite y valida tokens firmados autocontenidos (JWT
// HS256). El servicio se instancia dos veces: uno para access tokens
// (vida corta) y otro para refresh tokens (vida larga con ventana de
// renovación), cada uno con su propio secreto.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken cubre firma inválida, formato corrupto y expiración.
var ErrInvalidToken = errors.New("token: invalid token")

// Service firma y valida tokens con un secreto y una vida útil fijos.
type Service struct {
	secret        []byte
	ttl           time.Duration
	renewalWindow time.Duration
	now           func() time.Time
}

// NewService crea un servicio de tokens.
// renewalWindow es el tramo final de la vida útil durante el cual Renew
// reporta true; 0 deshabilita la renovación (típico en access tokens).
func NewService(secret string, ttl, renewalWindow time.Duration) *Service {
	return &Service{
		secret:        []byte(secret),
		ttl:           ttl,
		renewalWindow: renewalWindow,
		now:           time.Now,
	}
}

// Generate firma el payload agregando iat/exp según la vida útil y un
// jti único. El jti garantiza que dos tokens del mismo payload nunca
// son idénticos, aunque se emitan en el mismo segundo.
func (s *Service) Generate(payload map[string]any) (string, error) {
	now := s.now().UTC()

	claims := jwtv5.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	claims["jti"] = uuid.NewString()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(s.ttl).Unix()

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Validate verifica firma y expiración y retorna los claims.
// Toda falla se reporta como ErrInvalidToken.
func (s *Service) Validate(tokenString string) (map[string]any, error) {
	tk, err := jwtv5.Parse(tokenString,
		func(*jwtv5.Token) (any, error) { return s.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil || !tk.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Renew reporta si el token entró en su ventana de renovación: válido
// pero con expiración a menos de renewalWindow de distancia.
func (s *Service) Renew(tokenString string) (bool, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return false, err
	}
	if s.renewalWindow <= 0 {
		return false, nil
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false, ErrInvalidToken
	}
	remaining := time.Unix(int64(exp), 0).Sub(s.now())
	return remaining <= s.renewalWindow, nil
}
