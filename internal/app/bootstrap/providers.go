// internal/app/bootstrap/providers.go
package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/soar/internal/app/system/authprovider"
	"go.uber.org/zap"
)

// newAuthProvider builds the identity provider named by auth_provider.
func newAuthProvider(appCfg AppConfig, logger *zap.Logger) (authprovider.Provider, error) {
	switch appCfg.AuthProvider {
	case ProviderGoTrue:
		return authprovider.NewGoTrue(authprovider.GoTrueConfig{
			URL:         appCfg.AuthURL,
			APIKey:      appCfg.AuthAPIKey,
			RedirectURL: appCfg.AuthRedirectURL,
			HTTPClient:  &http.Client{Timeout: appCfg.TimeoutProvider},
		}, logger.Named("gotrue"))
	case ProviderMemory:
		return authprovider.NewMemory(appCfg.AuthMemoryAutoConfirm), nil
	default:
		return nil, fmt.Errorf("unknown auth_provider %q", appCfg.AuthProvider)
	}
}
