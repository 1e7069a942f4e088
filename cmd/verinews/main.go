package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/verinews/verinews/internal/analyze"
	"github.com/verinews/verinews/internal/classify"
	"github.com/verinews/verinews/internal/config"
	"github.com/verinews/verinews/internal/scrape"
	"github.com/verinews/verinews/internal/server"
	"github.com/verinews/verinews/internal/store"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	_ = godotenv.Load()
	cfg := config.FromEnv()

	var (
		rulesPath string
		verbose   bool
	)
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	flag.StringVar(&cfg.Provider, "classifier.provider", cfg.Provider, "Classification backend: inference or openai")
	flag.StringVar(&cfg.ModelID, "classifier.model", cfg.ModelID, "Remote model identifier")
	flag.StringVar(&cfg.Endpoint, "classifier.endpoint", cfg.Endpoint, "Inference endpoint URL")
	flag.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL (openai provider)")
	flag.IntVar(&cfg.MaxInputChars, "max.inputChars", cfg.MaxInputChars, "Maximum characters sent to the classifier")
	flag.BoolVar(&cfg.BrowserHeadless, "browser.headless", cfg.BrowserHeadless, "Run the render browser headless")
	flag.DurationVar(&cfg.NavigationTimeout, "browser.timeout", cfg.NavigationTimeout, "Navigation timeout per render")
	flag.StringVar(&rulesPath, "rules", cfg.RulesPath, "Path to yaml rules file (domain lists, label table)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()
	cfg.RulesPath = rulesPath
	cfg.Verbose = verbose

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.LoadRules(); err != nil {
		log.Fatal().Err(err).Msg("load rules")
	}
	labels, err := cfg.Rules.LabelTable()
	if err != nil {
		log.Fatal().Err(err).Msg("label table")
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("classifier provider")
	}
	classifier := classify.NewClient(provider, labels, classify.WithLogger(log.Logger))

	fetcher := scrape.New(scrape.Options{
		Headless:           cfg.BrowserHeadless,
		NavigationTimeout:  cfg.NavigationTimeout,
		StaticFirstDomains: cfg.Rules.StaticFirstDomains,
		Logger:             log.Logger,
	})

	orchestrator := analyze.New(fetcher, classifier, analyze.Options{
		SatireDomains:  cfg.Rules.SatireDomains,
		TrustedDomains: cfg.Rules.TrustedDomains,
		MaxInputChars:  cfg.MaxInputChars,
		Snippets:       fetcher,
		Logger:         log.Logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvOpts := server.Options{
		Analyzer:       orchestrator,
		ModelID:        cfg.ModelID,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         log.Logger,
	}
	if cfg.DatabaseURL != "" {
		st, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("open store")
		}
		defer st.Close()
		srvOpts.History = st
		srvOpts.Users = st
	} else {
		log.Warn().Msg("DATABASE_URL unset; running without history or accounts")
	}
	if cfg.JWTSecret != "" {
		srvOpts.Tokens = server.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	}

	api := server.New(srvOpts)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("model", cfg.ModelID).Str("provider", cfg.Provider).Msg("verinews listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func buildProvider(cfg config.Config) (classify.Provider, error) {
	switch cfg.Provider {
	case "inference":
		return &classify.InferenceProvider{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
		}, nil
	case "openai":
		transportCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.LLMBaseURL != "" {
			transportCfg.BaseURL = cfg.LLMBaseURL
		}
		return &classify.OpenAIProvider{
			Client: openai.NewClientWithConfig(transportCfg),
			Model:  cfg.ModelID,
		}, nil
	}
	return nil, errors.New("unknown classifier provider " + cfg.Provider)
}
