package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vallemsec/spectra-web/internal/api"
	"github.com/vallemsec/spectra-web/internal/scanner"
	"github.com/vallemsec/spectra-web/internal/shared/constants"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scan form and results pages",
	Long: `Serve the landing page with the scan form, the results page and its
markdown and PDF exports, the asynchronous scan API and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the web server")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	serveCmd.Flags().Bool("trust-proxy", false, "Rate limit by the first X-Forwarded-For hop (only behind a reverse proxy)")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().Int("max-jobs", constants.DefaultMaxJobs, "Scan jobs kept in memory")
	serveCmd.Flags().Int("max-running-jobs", constants.DefaultMaxRunningJobs, "Scan jobs allowed to run at once")
}

// webOptions are the serve flags that shape the handler beyond api.Config.
type webOptions struct {
	Metrics    bool
	MaxJobs    int
	MaxRunning int
}

func runServe(cmd *cobra.Command, _ []string) error {
	appCtx := getAppContext(cmd)
	if appCtx == nil {
		return fmt.Errorf("configuration not loaded")
	}
	addr, _ := cmd.Flags().GetString("addr")
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
	corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
	rateLimit, _ := cmd.Flags().GetInt("rate-limit")
	rateBurst, _ := cmd.Flags().GetInt("rate-burst")
	trustProxy, _ := cmd.Flags().GetBool("trust-proxy")
	var opts webOptions
	opts.Metrics, _ = cmd.Flags().GetBool("metrics")
	opts.MaxJobs, _ = cmd.Flags().GetInt("max-jobs")
	opts.MaxRunning, _ = cmd.Flags().GetInt("max-running-jobs")

	logger := appCtx.Logger
	server, jobs, err := newWebServer(appCtx, api.Config{
		CORSOrigins: corsOrigins,
		RateLimit:   rateLimit,
		RateBurst:   rateBurst,
		TrustProxy:  trustProxy,
	}, opts)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: appCtx.Config.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		fmt.Printf("%s spectra-web listening on http://%s (mode: %s)\n", colorInfo("→"), addr, appCtx.Config.Mode)
		fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
		logger.Info("server_started", zap.String("addr", addr), zap.String("mode", string(appCtx.Config.Mode)))
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)
		logger.Info("server_shutdown", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			// Force close if graceful shutdown fails
			if closeErr := httpServer.Close(); closeErr != nil {
				return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
			}
			return fmt.Errorf("failed to gracefully shutdown server: %w", err)
		}
		if err := jobs.Close(ctx); err != nil {
			logger.Warn("scan_jobs_abandoned", zap.Error(err))
		}

		fmt.Printf("%s Server shutdown complete\n", colorInfo("✓"))
	}

	return nil
}

// newWebServer assembles the HTTP handler and the job manager behind it.
// base carries the transport settings; services are filled in here.
func newWebServer(appCtx *AppContext, base api.Config, opts webOptions) (*api.Server, *api.JobManager, error) {
	var metrics *scanner.Metrics
	if opts.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		var err error
		if metrics, err = scanner.NewMetrics(reg); err != nil {
			return nil, nil, fmt.Errorf("register scanner metrics: %w", err)
		}
		base.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	pipeline := newPipeline(appCtx, metrics)
	jobs := api.NewJobManager(pipeline, appCtx.Logger, api.WithMaxRunning(opts.MaxRunning))
	jobs.SetMaxJobs(opts.MaxJobs)

	base.Reports = pipeline
	base.Health = api.ConfigHealth{Config: appCtx.Config}
	base.Jobs = jobs
	base.Logger = appCtx.Logger
	return api.NewServer(base), jobs, nil
}
