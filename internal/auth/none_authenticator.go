package auth

import (
	"net/http"
)

const anonymousSubject = "anonymous"

type NoneAuthenticator struct{}

func NewNoneAuthenticator() (*NoneAuthenticator, error) {
	return &NoneAuthenticator{}, nil
}

func (n *NoneAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := NewCallerContext(r.Context(), Caller{Subject: anonymousSubject})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
