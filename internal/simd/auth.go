package simd

import (
	"context"
	"encoding/base64"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/prtslab/prts-console/internal/models"
)

type ctxKey string

const userKey ctxKey = "user"

// Authenticator issues and validates bearer tokens and tracks failed login
// attempts per username/IP.
type Authenticator struct {
	secret []byte
	policy models.LoginPolicy

	mu       sync.Mutex
	users    map[string][]byte // username -> bcrypt hash
	attempts map[string]*attemptRecord
}

type attemptRecord struct {
	count       int
	lockedUntil time.Time
}

// NewAuthenticator seeds the given accounts (plaintext passwords are hashed
// immediately) and applies the login policy.
func NewAuthenticator(secret string, policy models.LoginPolicy, accounts map[string]string) *Authenticator {
	a := &Authenticator{
		secret:   []byte(secret),
		policy:   policy,
		users:    make(map[string][]byte),
		attempts: make(map[string]*attemptRecord),
	}
	for username, password := range accounts {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		a.users[username] = hash
	}
	return a
}

// AddAccount registers a login account, hashing the password immediately.
func (a *Authenticator) AddAccount(username, password string) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	a.mu.Lock()
	a.users[username] = hash
	a.mu.Unlock()
}

// RemoveAccount deletes a login account and its failure record.
func (a *Authenticator) RemoveAccount(username string) {
	a.mu.Lock()
	delete(a.users, username)
	delete(a.attempts, username)
	a.mu.Unlock()
}

// Policy returns the active login policy.
func (a *Authenticator) Policy() models.LoginPolicy {
	return a.policy
}

// sessionDuration derives the token lifetime from the policy.
func (a *Authenticator) sessionDuration() time.Duration {
	if a.policy.Session > 0 {
		return time.Duration(a.policy.Session) * time.Minute
	}
	return 24 * time.Hour
}

// Login verifies the base64-obfuscated password against the stored hash,
// honoring the lockout and whitelist rules. On success it returns a signed
// token and the user record; on failure the error string matches the
// control center's wire contract.
func (a *Authenticator) Login(req models.LoginRequest, clientIP string) (string, models.User, *authError) {
	if a.policy.Whitelist != "" {
		whitelisted := false
		for _, ip := range strings.Split(a.policy.Whitelist, ",") {
			if strings.TrimSpace(ip) == clientIP {
				whitelisted = true
				break
			}
		}
		if !whitelisted {
			return "", models.User{}, &authError{http.StatusForbidden, "IP not in whitelist"}
		}
	}

	a.mu.Lock()
	rec, ok := a.attempts[req.Username]
	if ok && time.Now().Before(rec.lockedUntil) {
		a.mu.Unlock()
		return "", models.User{}, &authError{http.StatusForbidden, "Account locked"}
	}
	a.mu.Unlock()

	password := req.Password
	if decoded, err := base64.StdEncoding.DecodeString(req.Password); err == nil {
		password = string(decoded)
	}

	a.mu.Lock()
	hash, exists := a.users[req.Username]
	a.mu.Unlock()
	if !exists || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		a.recordFailure(req.Username)
		return "", models.User{}, &authError{http.StatusUnauthorized, "Authentication failed"}
	}

	a.mu.Lock()
	delete(a.attempts, req.Username)
	a.mu.Unlock()

	token, err := a.issue(req.Username, "admin")
	if err != nil {
		return "", models.User{}, &authError{http.StatusInternalServerError, "token generation failed"}
	}
	return token, models.User{Username: req.Username, Role: "admin"}, nil
}

func (a *Authenticator) recordFailure(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.attempts[username]
	if !ok {
		rec = &attemptRecord{}
		a.attempts[username] = rec
	}
	rec.count++
	maxRetry := a.policy.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	if rec.count >= maxRetry {
		lockout := a.policy.Lockout
		if lockout <= 0 {
			lockout = 30
		}
		rec.lockedUntil = time.Now().Add(time.Duration(lockout) * time.Minute)
	}
}

func (a *Authenticator) issue(username, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"role":     role,
		"exp":      time.Now().Add(a.sessionDuration()).Unix(),
	})
	return token.SignedString(a.secret)
}

// Middleware enforces bearer-token authentication and implements the
// sliding session: every authenticated response carries a freshly signed
// token in the X-Refresh-Token header.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" || tokenString == authHeader {
			writeError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid token claims")
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)

		if refreshed, err := a.issue(username, role); err == nil {
			w.Header().Set("X-Refresh-Token", refreshed)
		}

		ctx := context.WithValue(r.Context(), userKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFromContext returns the authenticated username, empty when absent.
func UserFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(userKey).(string); ok {
		return s
	}
	return ""
}

// clientIP extracts the remote address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type authError struct {
	status  int
	message string
}
