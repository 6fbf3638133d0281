package cmd

import (
	"github.com/vallemsec/spectra-web/internal/cms"
	"github.com/vallemsec/spectra-web/internal/render"
	"github.com/vallemsec/spectra-web/internal/scanner"
)

// newPipeline wires the scan source and the blog feed for appCtx. metrics
// may be nil.
func newPipeline(appCtx *AppContext, metrics *scanner.Metrics) *render.Pipeline {
	cfg := appCtx.Config
	source := scanner.NewSource(cfg, appCtx.Logger, metrics)

	var posts render.PostSource
	if cfg.CMSEndpoint != "" {
		posts = cms.NewClient(cfg.CMSEndpoint, cfg.RequestTimeout)
	}
	return render.NewPipeline(cfg, source, posts, appCtx.Logger)
}
