package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// TokenIssuer identifies the issuer of session cookies.
	TokenIssuer = "epguest"
)

// ErrEmptySessionID is returned when asked to sign a cookie without a session ID.
var ErrEmptySessionID = errors.New("session id is empty")

// SignSessionID creates an HS256-signed token carrying sessionID, valid for maxAge.
func SignSessionID(sessionID string, secretKey string, maxAge time.Duration) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySessionID
	}

	now := time.Now()
	claims := &SessionClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(maxAge).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// ParseSessionID validates tokenString and returns the session ID it carries.
func ParseSessionID(tokenString string, secretKey string) (string, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return "", err
	}

	if !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	if claims.Issuer != TokenIssuer {
		return "", errors.New("unexpected token issuer")
	}

	if claims.SessionID == "" {
		return "", ErrEmptySessionID
	}

	return claims.SessionID, nil
}
