package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"go-easyapply-automation/internal/apply"
	"go-easyapply-automation/internal/autofill"
	"go-easyapply-automation/internal/browser"
	"go-easyapply-automation/internal/config"
	"go-easyapply-automation/internal/dedup"
	"go-easyapply-automation/internal/extract"
	"go-easyapply-automation/internal/filter"
	"go-easyapply-automation/internal/logging"
	"go-easyapply-automation/internal/models"
	"go-easyapply-automation/internal/reporter"
	"go-easyapply-automation/internal/rules"
	"go-easyapply-automation/internal/scoring"
	"go-easyapply-automation/internal/search"
	"go-easyapply-automation/internal/selector"
	"go-easyapply-automation/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the run configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		configPath = ""
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("🔧 config loaded", zap.Strings("keywords", cfg.Search.Keywords), zap.String("location", cfg.Search.Location))

	rs := rules.Default()
	if cfg.RulesPath != "" {
		if rs, err = rules.Load(cfg.RulesPath); err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// one process per browser profile
	lock, err := browser.AcquireSessionLock(cfg.Browser.StateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := store.Open(ctx, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reporters := reporter.Multi{reporter.NewLogReporter(logger)}
	if cfg.Telegram.Token != "" {
		tg, err := reporter.NewTelegramReporter(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.NotifyAll)
		if err != nil {
			return fmt.Errorf("init telegram: %w", err)
		}
		reporters = append(reporters, tg)
		logger.Info("🤖 telegram notifications enabled")
	}

	gate, err := filter.NewGate(filter.Config{
		Include:        cfg.Filter.Include,
		Exclude:        cfg.Filter.Exclude,
		RejectSeniorXP: cfg.Filter.RejectSeniorXP,
	})
	if err != nil {
		return fmt.Errorf("build filter: %w", err)
	}

	var enc scoring.Encoder = scoring.HashingEncoder{}
	if cfg.Scoring.Endpoint != "" {
		enc = scoring.NewHTTPEncoder(cfg.Scoring.Endpoint, cfg.Scoring.APIKey, cfg.Scoring.Model, cfg.Scoring.Timeout.D(), logger)
		logger.Info("🧠 embeddings endpoint", zap.String("endpoint", cfg.Scoring.Endpoint), zap.String("model", cfg.Scoring.Model))
	} else {
		logger.Info("🧠 no embeddings endpoint, using hashed bag-of-words")
	}

	pm, err := browser.NewPlaywright(ctx, browser.LaunchOptions{
		Headless:  cfg.Browser.Headless,
		SlowMoMs:  cfg.Browser.SlowMoMs,
		UserAgent: cfg.Browser.UserAgent,
	})
	if err != nil {
		return err
	}
	defer pm.Close()

	cookies, err := browser.LoadCookies(cfg.Browser.CookiesPath)
	if err != nil {
		logger.Warn("⚠️ could not load cookies, manual login required", zap.Error(err))
	} else {
		logger.Info("🍪 cookies loaded", zap.Int("count", len(cookies)))
	}
	bctx, err := pm.NewContext(cookies, cfg.Browser.UserAgent)
	if err != nil {
		return err
	}
	defer bctx.Close()
	page, err := bctx.NewPage()
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	session := browser.NewSession(page, cfg.Timeouts.Navigation.D())
	logger.Info("✅ browser initialized")

	resolver := selector.New(logger)
	pacer := browser.Pacer{Base: cfg.Pacing.Settle.D(), Jitter: cfg.Pacing.Jitter.D()}
	nav := search.NewNavigator(session, resolver, rs, pacer, logger)
	nav.CardWait = cfg.Timeouts.CardList.D()
	nav.ClickTimeout = cfg.Timeouts.Click.D()

	if err := nav.WaitForLogin(ctx, cfg.Browser.LoginURL, cfg.Timeouts.Login.D()); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	seen := dedup.NewJobCache(cfg.Storage.CachePath, dedup.DefaultRetention, logger)
	engine := apply.NewEngine(session, apply.Deps{
		Rules:       rs,
		Resolver:    resolver,
		Extractor:   extract.New(rs, resolver, logger),
		Filler:      autofill.New(rs, resolver, cfg.Profile.ResumePath, logger),
		Scorer:      scoring.NewScorer(enc),
		Gate:        gate,
		Seen:        seen,
		Screenshots: browser.NewScreenshotDebugger(cfg.Storage.ScreenshotDir, logger),
	}, apply.Options{
		MaxSteps:     cfg.Limits.MaxSteps,
		MinScore:     cfg.Scoring.MinScore,
		TargetText:   cfg.Profile.TargetText,
		MaxPostedAge: cfg.Filter.MaxPostedAge.D(),
		Profile:      cfg.Profile.Fields,
		Pacer:        pacer,
		Timeouts: apply.Timeouts{
			CardList:    cfg.Timeouts.CardList.D(),
			DetailPane:  cfg.Timeouts.DetailPane.D(),
			ApplyButton: cfg.Timeouts.ApplyButton.D(),
			Modal:       cfg.Timeouts.Modal.D(),
			ModalClose:  cfg.Timeouts.ModalClose.D(),
			Click:       cfg.Timeouts.Click.D(),
			Step:        cfg.Timeouts.Step.D(),
		},
	}, logger)

	runner := apply.NewRunner(engine, nav, st, reporters, seen, apply.RunOptions{
		Search: search.Params{
			BaseURL:       cfg.Search.BaseURL,
			Location:      cfg.Search.Location,
			PostedWithin:  cfg.Search.PostedWithin.D(),
			Experience:    cfg.Search.Experience,
			JobTypes:      cfg.Search.JobTypes,
			EasyApplyOnly: cfg.Search.EasyApplyOnly,
		},
		Keywords:          cfg.Search.Keywords,
		MaxPages:          cfg.Limits.MaxPages,
		CardsPerPage:      cfg.Limits.CardsPerPage,
		MaxApplications:   cfg.Limits.MaxApplications,
		AttemptsPerMinute: cfg.Limits.AttemptsPerMinute,
	}, logger)

	sum, err := runner.Run(ctx)
	fmt.Println(reporter.RenderSummary(sum))
	if counts, cerr := st.CountByState(context.WithoutCancel(ctx), sum.RunID); cerr != nil {
		logger.Warn("⚠️ failed to read stored totals", zap.Error(cerr))
	} else {
		logger.Info("💾 outcomes stored",
			zap.Int("submitted", counts[models.StateSubmitted]),
			zap.Int("skipped", counts[models.StateSkipped]),
			zap.Int("abandoned", counts[models.StateAbandoned]),
			zap.Int("attempted", len(sum.Outcomes)))
	}
	if err != nil {
		return fmt.Errorf("run %s stopped: %w", sum.RunID, err)
	}
	return nil
}
