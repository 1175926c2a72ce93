package utils

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the signed admin session.
const SessionCookieName = "blog_session"

// SessionClaims is the signed payload stored in the session cookie. The only
// capability is the binary admin flag.
type SessionClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies admin session cookies.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionManager creates a SessionManager from the signing secret and TTL.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{secret: []byte(secret), ttl: ttl}
}

// Issue sets a signed admin session cookie on the response.
func (m *SessionManager) Issue(ctx *gin.Context) error {
	claims := SessionClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return err
	}
	ctx.SetCookie(SessionCookieName, signed, int(m.ttl.Seconds()), "/", "", false, true)
	return nil
}

// Clear removes the session cookie.
func (m *SessionManager) Clear(ctx *gin.Context) {
	ctx.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
}

// IsAdmin reports whether the request carries a valid admin session cookie.
func (m *SessionManager) IsAdmin(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	claims, err := m.parse(cookie.Value)
	if err != nil {
		return false
	}
	return claims.Admin
}

func (m *SessionManager) parse(tokenStr string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid session claims")
	}
	return claims, nil
}
