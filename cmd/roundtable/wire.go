package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/roundtable"
	"github.com/hupe1980/roundtable/config"
	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/metrics"
	"github.com/hupe1980/roundtable/model"
	"github.com/hupe1980/roundtable/model/anthropic"
	"github.com/hupe1980/roundtable/model/gemini"
	"github.com/hupe1980/roundtable/model/openai"
	"github.com/hupe1980/roundtable/prompt"
	"github.com/hupe1980/roundtable/responder"
	"github.com/hupe1980/roundtable/session"
	"github.com/hupe1980/roundtable/session/file"
	"github.com/hupe1980/roundtable/session/gormstore"
	"github.com/hupe1980/roundtable/session/redisstore"
)

// gatewayFactory builds the responder gateway from the loaded configuration.
type gatewayFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger, m *metrics.Collector) (core.Gateway, error)

// app holds the state shared by all subcommands.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	newGateway gatewayFactory

	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Collector
	closers []io.Closer
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:     stdout,
		stderr:     stderr,
		newGateway: buildGateway,
	}
}

// setup loads the configuration and builds the logger and metrics.
func (a *app) setup() error {
	loader := config.NewLoader()
	if a.configPath != "" {
		loader = loader.WithConfigPath(a.configPath)
	}
	cfg, err := loader.WithValidator(config.ValidateStore).Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Backend: cfg.Log.Backend,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  a.stderr,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.metrics = metrics.NewCollector(func(o *metrics.Options) {
		o.RuntimeCollectors = true
	})
	return nil
}

// close releases store connections.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

// store builds the transcript store selected by cfg.Store.Driver.
func (a *app) store(ctx context.Context) (*session.Store, error) {
	sc := a.cfg.Store
	withLogger := func(o *session.Options) { o.Logger = a.logger }

	switch strings.ToLower(sc.Driver) {
	case "", "file":
		b := file.New(func(o *file.Options) {
			o.Dir = sc.Dir
			o.Logger = a.logger
		})
		return session.NewStore(b, withLogger), nil
	case "sqlite", "postgres":
		b, err := gormstore.New(sc.Driver, sc.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b)
		return session.NewStore(b, withLogger), nil
	case "redis":
		b, err := redisstore.New(ctx, func(o *redisstore.Options) {
			o.Addr = sc.Redis.Addr
			o.Password = sc.Redis.Password
			o.DB = sc.Redis.DB
			o.KeyPrefix = sc.Redis.KeyPrefix
			o.Logger = a.logger
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, b)
		return session.NewStore(b, withLogger), nil
	case "memory":
		return session.NewInMemoryStore(withLogger), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", sc.Driver)
	}
}

// roundtable wires the façade for chat and serve.
func (a *app) roundtable(ctx context.Context) (*roundtable.Roundtable, error) {
	store, err := a.store(ctx)
	if err != nil {
		return nil, err
	}

	gw, err := a.newGateway(ctx, a.cfg, a.logger, a.metrics)
	if err != nil {
		return nil, err
	}

	chat := a.cfg.Chat
	return roundtable.New(func(o *roundtable.Options) {
		o.Gateway = gw
		o.Store = store
		o.Stager = prompt.NewStager(func(po *prompt.Options) {
			po.HistoryWindow = chat.HistoryWindow
			po.MaxTokens = chat.MaxTokens
			po.FinalMaxTokens = chat.FinalMaxTokens
		})
		o.Interval = chat.Interval
		o.DefaultTurns = chat.Turns
		o.Logger = a.logger
		o.Metrics = a.metrics
	})
}

// buildGateway binds the three hosted models to their speakers.
func buildGateway(ctx context.Context, cfg *config.Config, logger logging.Logger, m *metrics.Collector) (core.Gateway, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	for name, pc := range map[string]config.ProviderConfig{
		"openai":    cfg.OpenAI,
		"anthropic": cfg.Anthropic,
		"gemini":    cfg.Gemini,
	} {
		if pc.APIKey == "" {
			logger.Warn("no API key configured, turns of this provider will fail", "provider", name)
		}
	}

	gpt := openai.NewModel(func(o *openai.Options) {
		o.Model = cfg.OpenAI.Model
		o.Temperature = cfg.OpenAI.Temperature
		o.APIKey = cfg.OpenAI.APIKey
	})

	claude := anthropic.NewModel(func(o *anthropic.Options) {
		o.Model = anthropicsdk.Model(cfg.Anthropic.Model)
		o.Temperature = cfg.Anthropic.Temperature
		o.APIKey = cfg.Anthropic.APIKey
	})

	gem, err := gemini.NewModel(ctx, func(o *gemini.Options) {
		o.Model = cfg.Gemini.Model
		o.Temperature = float32(cfg.Gemini.Temperature)
		o.APIKey = cfg.Gemini.APIKey
	})
	if err != nil {
		return nil, err
	}

	models := map[core.Speaker]model.Model{
		core.SpeakerGPT:    gpt,
		core.SpeakerClaude: claude,
		core.SpeakerGemini: gem,
	}

	gw, err := responder.NewGateway(models, func(o *responder.Options) {
		o.Logger = logger
		o.Metrics = m
		o.Timeouts = map[core.Speaker]time.Duration{
			core.SpeakerGPT:    cfg.OpenAI.Timeout,
			core.SpeakerClaude: cfg.Anthropic.Timeout,
			core.SpeakerGemini: cfg.Gemini.Timeout,
		}
	})
	if err != nil {
		return nil, err
	}
	return gw, nil
}
