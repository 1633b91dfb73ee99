// Package auth turns bearer tokens into a request-scoped Identity.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/safar/cartstore/internal/apperr"
)

const RoleAdmin = "admin"

// Identity is the authenticated caller. The zero value is anonymous.
type Identity struct {
	CustomerID uuid.UUID
	Admin      bool
}

func (id Identity) Authenticated() bool {
	return id.CustomerID != uuid.Nil
}

// Require returns ErrUnauthenticated for an anonymous identity.
func (id Identity) Require() error {
	if !id.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	return nil
}

type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by the middleware, or the zero
// Identity if the request carried no valid token.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(contextKey{}).(Identity)
	return id
}

type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// IssueToken signs an HS256 token for the customer.
func (a *Authenticator) IssueToken(id Identity, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.CustomerID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if id.Admin {
		claims.Role = RoleAdmin
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a signed token and returns its identity.
func (a *Authenticator) Parse(raw string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}

	customerID, err := uuid.Parse(claims.Subject)
	if err != nil || customerID == uuid.Nil {
		return Identity{}, fmt.Errorf("%w: invalid subject", apperr.ErrUnauthenticated)
	}

	return Identity{CustomerID: customerID, Admin: claims.Role == RoleAdmin}, nil
}

// Middleware attaches the identity from a valid bearer token. Requests with
// no token pass through anonymous so handlers decide how to fail; a token
// that is present but invalid is rejected by onError.
func (a *Authenticator) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				onError(w, r, fmt.Errorf("%w: expected bearer token", apperr.ErrUnauthenticated))
				return
			}

			id, err := a.Parse(strings.TrimSpace(raw))
			if err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireCustomer rejects anonymous callers with ErrUnauthenticated before
// the handler looks at the request.
func RequireCustomer(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := FromContext(r.Context()).Require(); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects anonymous callers with ErrUnauthenticated and
// non-admin callers with ErrForbidden.
func RequireAdmin(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			switch {
			case !id.Authenticated():
				onError(w, r, apperr.ErrUnauthenticated)
			case !id.Admin:
				onError(w, r, fmt.Errorf("%w: admin role required", apperr.ErrForbidden))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
