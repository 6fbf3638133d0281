package render

import (
	"context"
	"time"

	"github.com/vallemsec/spectra-web/internal/cms"
	"github.com/vallemsec/spectra-web/internal/config"
	"github.com/vallemsec/spectra-web/internal/logging"
	"github.com/vallemsec/spectra-web/internal/scanner"
	"github.com/vallemsec/spectra-web/internal/target"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PostSource supplies blog posts shown under the results.
type PostSource interface {
	Latest(ctx context.Context, limit int) ([]cms.Post, error)
}

// Pipeline runs the scans for a target and collects them into a Report.
type Pipeline struct {
	cfg    config.Config
	source scanner.Source
	posts  PostSource
	logger *zap.Logger
	now    func() time.Time
}

// NewPipeline wires a pipeline. posts may be nil to disable the blog feed.
func NewPipeline(cfg config.Config, source scanner.Source, posts PostSource, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		posts:  posts,
		logger: logger,
		now:    time.Now,
	}
}

// Run issues the domain scan, the email scan (only when an email was given)
// and the blog fetch concurrently, waits for all of them and returns the
// settled report. A failing section never fails the others.
func (p *Pipeline) Run(ctx context.Context, t target.Targets) *Report {
	rep := NewReport(t, p.cfg.Mode)
	logger := logging.FromContext(ctx, p.logger).With(zap.String("domain", rep.Targets.Domain), zap.Bool("email_requested", rep.Leaks != nil))

	var (
		scan    scanner.ScanResult
		scanErr error
		leaks   scanner.EmailLeakResult
		leakErr error
		posts   []cms.Post
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scan, scanErr = p.source.DomainScan(gctx, rep.Targets.Domain)
		return nil
	})
	if rep.Leaks != nil {
		g.Go(func() error {
			leaks, leakErr = p.source.EmailScan(gctx, rep.Targets.Email)
			return nil
		})
	}
	if p.posts != nil {
		g.Go(func() error {
			posts = p.LatestPosts(gctx)
			return nil
		})
	}
	_ = g.Wait()

	if scanErr != nil {
		logger.Warn("domain_scan_failed", zap.String("target_kind", string(scanner.KindDomain)), zap.Error(scanErr))
		rep.Scan = Outcome[scanner.ScanResult]{State: StateFailed, Error: ScanFailedMessage}
	} else {
		rep.Scan = Outcome[scanner.ScanResult]{State: StateSuccess, Value: scan}
	}

	if rep.Leaks != nil {
		if leakErr != nil {
			logger.Warn("email_scan_failed", zap.String("target_kind", string(scanner.KindEmail)), zap.Error(leakErr))
			rep.Leaks = &Outcome[scanner.EmailLeakResult]{State: StateFailed, Error: LeaksFailedMessage}
		} else {
			rep.Leaks = &Outcome[scanner.EmailLeakResult]{State: StateSuccess, Value: leaks}
		}
	}

	rep.Posts = posts
	rep.GeneratedAt = p.now().UTC()
	logger.Info("report_ready",
		zap.Int("problems", len(rep.Scan.Value.Results)),
		zap.Bool("failed", rep.Failed()),
		zap.Int("posts", len(rep.Posts)),
	)
	return rep
}

// LatestPosts returns the blog feed. Feed errors are logged and yield no
// posts.
func (p *Pipeline) LatestPosts(ctx context.Context) []cms.Post {
	if p.posts == nil {
		return nil
	}
	posts, err := p.posts.Latest(ctx, p.cfg.BlogPosts)
	if err != nil {
		logging.FromContext(ctx, p.logger).Warn("blog_feed_failed", zap.Error(err))
		return nil
	}
	return posts
}
