package tokenadapter

import (
	"errors"
	"time"

	domainerrors "flowsmartly/contexts/identity-access/session-service/domain/errors"
	"flowsmartly/contexts/identity-access/session-service/ports"

	"github.com/golang-jwt/jwt/v5"
)

// JWTSigner mints HS256 credentials whose subject is the session id. The
// token is a pointer into the session store, not a self-contained identity:
// resolution always re-checks the session row.
type JWTSigner struct {
	Secret []byte
	Issuer string
}

func (s JWTSigner) Sign(sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    s.Issuer,
		ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

func (s JWTSigner) Verify(credential string) (string, error) {
	parsed, err := jwt.ParseWithClaims(credential, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domainerrors.ErrInvalidToken
		}
		return s.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domainerrors.ErrSessionExpired
		}
		return "", domainerrors.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", domainerrors.ErrInvalidToken
	}
	return claims.Subject, nil
}

var _ ports.TokenSigner = JWTSigner{}
