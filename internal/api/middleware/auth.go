package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/GriffinCanCode/fedfs/internal/rpc"
)

// SubjectKey is the gin context key holding the authenticated subject
const SubjectKey = "auth.subject"

// AuthConfig lists the credentials a bearer token may match. Either a static
// API key or an HS256 JWT signed with Secret is accepted.
type AuthConfig struct {
	Secret  string
	APIKeys []string
}

// Authenticator validates bearer credentials
type Authenticator struct {
	secret []byte
	keys   [][sha256.Size]byte
}

// NewAuthenticator creates an authenticator for cfg
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	a := &Authenticator{}
	if cfg.Secret != "" {
		a.secret = []byte(cfg.Secret)
	}
	for _, key := range cfg.APIKeys {
		if key = strings.TrimSpace(key); key != "" {
			a.keys = append(a.keys, sha256.Sum256([]byte(key)))
		}
	}
	return a
}

// Authenticate returns the subject a token identifies
func (a *Authenticator) Authenticate(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(token))
	for _, key := range a.keys {
		if subtle.ConstantTimeCompare(sum[:], key[:]) == 1 {
			return "api-key", true
		}
	}
	if a.secret == nil {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", false
	}
	return claims.Subject, true
}

// Auth rejects requests without a valid bearer token with 401 and an
// authentication error envelope.
func Auth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := a.Authenticate(bearer(c.Request))
		if !ok {
			abort(c, http.StatusUnauthorized, rpc.CodeAuthentication, "missing or invalid credentials")
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}

func bearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
