package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/reporter"
	"go-easyapply-automation/internal/search"
	"go-easyapply-automation/internal/store"
)

// SeenRecorder is a SeenSet that also learns settled listings.
type SeenRecorder interface {
	SeenSet
	Add(keys ...string)
}

type RunOptions struct {
	// Search is the template for every keyword; Keyword and Start are set
	// per page.
	Search          search.Params
	Keywords        []string
	MaxPages        int
	CardsPerPage    int
	MaxApplications int
	// AttemptsPerMinute paces attempts. Zero or less means unpaced.
	AttemptsPerMinute float64
}

// Runner feeds every card of every results page to the Engine, one at a
// time, and records each outcome.
type Runner struct {
	engine   *Engine
	nav      *search.Navigator
	store    store.Store
	reporter reporter.Reporter
	seen     SeenRecorder
	limiter  *rate.Limiter
	opts     RunOptions
	logger   *zap.Logger
}

// NewRunner wires a run. store, rep and seen may be nil.
func NewRunner(engine *Engine, nav *search.Navigator, st store.Store, rep reporter.Reporter, seen SeenRecorder, opts RunOptions, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if opts.CardsPerPage <= 0 {
		opts.CardsPerPage = 25
	}
	limit := rate.Inf
	if opts.AttemptsPerMinute > 0 {
		limit = rate.Limit(opts.AttemptsPerMinute / 60)
	}
	return &Runner{
		engine:   engine,
		nav:      nav,
		store:    st,
		reporter: rep,
		seen:     seen,
		limiter:  rate.NewLimiter(limit, 1),
		opts:     opts,
		logger:   logger,
	}
}

var errCapReached = errors.New("application cap reached")

// Run processes every keyword until the pages run out, the application cap
// is hit, the session is lost or ctx ends. Only the last two are errors.
func (r *Runner) Run(ctx context.Context) (reporter.Summary, error) {
	sum := reporter.Summary{RunID: uuid.NewString(), Started: time.Now()}
	log := r.logger.With(zap.String("run", sum.RunID))
	log.Info("🚀 run started", zap.Strings("keywords", r.opts.Keywords))

	var err error
	for _, kw := range r.opts.Keywords {
		if err = r.keyword(ctx, kw, &sum, log); err != nil {
			break
		}
	}
	if errors.Is(err, errCapReached) {
		log.Info("🎯 application cap reached", zap.Int("cap", r.opts.MaxApplications))
		err = nil
	}

	sum.Finished = time.Now()
	sum.Err = err
	if r.reporter != nil {
		if rerr := r.reporter.Summary(context.WithoutCancel(ctx), sum); rerr != nil {
			log.Warn("⚠️ summary report failed", zap.Error(rerr))
		}
	}
	return sum, err
}

func (r *Runner) keyword(ctx context.Context, kw string, sum *reporter.Summary, log *zap.Logger) error {
	p := r.opts.Search
	p.Keyword = kw
	p.Start = 0
	if err := r.nav.Open(ctx, p); err != nil {
		if fatal(ctx, err) {
			return fmt.Errorf("open search %q: %w", kw, err)
		}
		if errors.Is(err, search.ErrNoResults) {
			log.Warn("⚠️ no results", zap.String("keyword", kw))
		} else {
			log.Warn("⚠️ search failed, next keyword", zap.String("keyword", kw), zap.Error(err))
		}
		return nil
	}

	for page := 1; ; page++ {
		if err := r.page(ctx, sum, log.With(zap.String("keyword", kw), zap.Int("page", page))); err != nil {
			return err
		}
		if page >= r.opts.MaxPages {
			return nil
		}
		more, err := r.nav.NextPage(ctx, p, r.opts.CardsPerPage)
		if err != nil {
			if fatal(ctx, err) {
				return fmt.Errorf("next page: %w", err)
			}
			log.Warn("⚠️ paging failed, next keyword", zap.String("keyword", kw), zap.Int("page", page), zap.Error(err))
			return nil
		}
		if !more {
			return nil
		}
		p.Start += r.opts.CardsPerPage
	}
}

// fatal reports whether a navigation failure must end the run rather than
// the current keyword.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, browser.ErrSessionLost) || ctx.Err() != nil
}

func (r *Runner) page(ctx context.Context, sum *reporter.Summary, log *zap.Logger) error {
	n, err := r.engine.CardCount(ctx)
	if err != nil {
		return err
	}
	if n > r.opts.CardsPerPage {
		n = r.opts.CardsPerPage
	}
	log.Info("📋 processing page", zap.Int("cards", n))

	for i := 0; i < n; i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		o, err := r.engine.Attempt(ctx, i)
		o.RunID = sum.RunID
		r.record(ctx, o, log)
		sum.Outcomes = append(sum.Outcomes, o)
		if err != nil {
			return err
		}
		if r.opts.MaxApplications > 0 && sum.Counts()[models.StateSubmitted] >= r.opts.MaxApplications {
			return errCapReached
		}
	}
	return nil
}

// record persists and reports o. Sink failures are logged; they never stop
// the run.
func (r *Runner) record(ctx context.Context, o models.Outcome, log *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	if r.store != nil {
		if err := r.store.SaveOutcome(ctx, o); err != nil {
			log.Warn("⚠️ failed to save outcome", zap.String("attempt", o.ID), zap.Error(err))
		}
	}
	if r.reporter != nil {
		if err := r.reporter.Report(ctx, o); err != nil {
			log.Warn("⚠️ failed to report outcome", zap.String("attempt", o.ID), zap.Error(err))
		}
	}
	if r.seen != nil && o.Settled() {
		job := models.JobRecord{Title: o.Title, Company: o.Company, Location: o.Location}
		if job.Complete() {
			r.seen.Add(job.Fingerprint())
		}
	}
}
