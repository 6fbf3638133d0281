package api

import (
	"context"

	"github.com/vallemsec/spectra-web/internal/config"
	sharedErrors "github.com/vallemsec/spectra-web/internal/shared/errors"
)

// ConfigHealth reports readiness from the runtime configuration.
type ConfigHealth struct {
	Config config.Config
}

func (h ConfigHealth) Check(context.Context) error {
	return nil
}

// Ready fails in live mode when no scanner endpoint is configured.
func (h ConfigHealth) Ready(context.Context) error {
	if h.Config.Live() && h.Config.ScannerEndpoint == "" {
		return sharedErrors.ErrEndpointNotConfigured
	}
	return nil
}
