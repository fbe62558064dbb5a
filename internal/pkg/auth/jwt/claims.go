package jwt

import "github.com/golang-jwt/jwt"

// SessionClaims is the payload of the signed session cookie.
// It carries only the opaque session ID; identity lives in the session store.
type SessionClaims struct {
	// StandardClaims carries Exp, Iat and Iss.
	jwt.StandardClaims

	// SessionID references a record in the session store.
	SessionID string `json:"sid"`
}
