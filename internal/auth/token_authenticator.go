package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const jwkFetchTimeout = 5 * time.Second

// TokenAuthenticator accepts requests carrying a valid bearer token.
type TokenAuthenticator struct {
	keyFn   jwt.Keyfunc
	methods []string
}

func NewTokenAuthenticatorWithKeyFn(keyFn jwt.Keyfunc, methods ...string) (*TokenAuthenticator, error) {
	if len(methods) == 0 {
		methods = []string{jwt.SigningMethodRS256.Name}
	}
	return &TokenAuthenticator{keyFn: keyFn, methods: methods}, nil
}

// NewSecretAuthenticator verifies HS256 tokens signed with a shared secret.
func NewSecretAuthenticator(secret string) (*TokenAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("shared secret is required for secret authentication")
	}
	key := []byte(secret)
	return NewTokenAuthenticatorWithKeyFn(func(*jwt.Token) (any, error) {
		return key, nil
	}, jwt.SigningMethodHS256.Name)
}

// NewJWKAuthenticator verifies RS256 tokens against the keys served at jwkURL.
func NewJWKAuthenticator(jwkURL string) (*TokenAuthenticator, error) {
	if jwkURL == "" {
		return nil, errors.New("jwk url is required for jwk authentication")
	}

	ctx, cancel := context.WithTimeout(context.Background(), jwkFetchTimeout)
	defer cancel()

	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwkURL})
	if err != nil {
		return nil, fmt.Errorf("failed to get public keys: %w", err)
	}

	return NewTokenAuthenticatorWithKeyFn(k.Keyfunc, jwt.SigningMethodRS256.Name)
}

func (a *TokenAuthenticator) Authenticate(token string) (Caller, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(a.methods), jwt.WithIssuedAt(), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, a.keyFn)
	if err != nil {
		return Caller{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	subject, err := t.Claims.GetSubject()
	if err != nil {
		return Caller{}, fmt.Errorf("failed to read token subject: %w", err)
	}

	return Caller{Subject: subject, Token: t}, nil
}

func (a *TokenAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || accessToken == "" {
			unauthorized(w, r, "no token provided")
			return
		}

		caller, err := a.Authenticate(accessToken)
		if err != nil {
			zap.S().Named("auth").Warnw("rejected webhook token", "error", err)
			unauthorized(w, r, "authentication failed")
			return
		}

		ctx := NewCallerContext(r.Context(), caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": message, "status": "error"})
}
