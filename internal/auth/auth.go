package auth

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/config"
)

type Authenticator interface {
	Authenticator(next http.Handler) http.Handler
}

const (
	NoneAuthentication   string = "none"
	SecretAuthentication string = "secret"
	JWKAuthentication    string = "jwk"
)

func NewAuthenticator(authConfig config.Auth) (Authenticator, error) {
	zap.S().Named("auth").Infof("authentication: '%s'", authConfig.AuthenticationType)

	switch authConfig.AuthenticationType {
	case SecretAuthentication:
		return NewSecretAuthenticator(authConfig.SharedSecret)
	case JWKAuthentication:
		return NewJWKAuthenticator(authConfig.JwkCertURL)
	case NoneAuthentication, "":
		return NewNoneAuthenticator()
	default:
		return nil, fmt.Errorf("unknown authentication type %q", authConfig.AuthenticationType)
	}
}
