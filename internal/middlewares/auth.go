package middlewares

import (
	"context"
	"net/http"

	"github.com/RedHatInsights/sync-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

const (
	authErrorMessage   = "Authentication failed"
	authErrorLogHeader = "Authentication error: "
	PSKClientIdHeader  = "x-sync-connector-client-id"
	PSKHeader          = "x-sync-connector-psk"
)

// AuthMiddleware allows the passage of parameters into the Authenticate middleware
type AuthMiddleware struct {
	Secrets map[string]interface{}
}

// Authenticate only lets through service to service requests that present a
// known client id with its pre shared key
func (amw *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, err := newServiceCredentials(
			r.Header.Get(PSKClientIdHeader),
			r.Header.Get(PSKHeader),
		)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err}).Debug("Authentication failure")
			http.Error(w, authErrorMessage, http.StatusUnauthorized)
			return
		}

		validator := serviceCredentialsValidator{knownServiceCredentials: amw.Secrets}
		if err := validator.validate(sc); err != nil {
			logger.Log.WithFields(logrus.Fields{"error": err, "client_id": sc.clientID}).Debug("Authentication failure")
			http.Error(w, authErrorMessage, http.StatusUnauthorized)
			return
		}

		logger.Log.Debugf("Received service to service request from %v", sc.clientID)

		principal := serviceToServicePrincipal{clientID: sc.clientID}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
