package cmd

import (
	"net/http"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/davidrioja/reelforge/internal/adapters/brand"
	"github.com/davidrioja/reelforge/internal/adapters/llm"
	"github.com/davidrioja/reelforge/internal/adapters/state"
	"github.com/davidrioja/reelforge/internal/adapters/tool"
	"github.com/davidrioja/reelforge/internal/compile"
	"github.com/davidrioja/reelforge/internal/config"
	"github.com/davidrioja/reelforge/internal/events"
	"github.com/davidrioja/reelforge/internal/intent"
	"github.com/davidrioja/reelforge/internal/logging"
	"github.com/davidrioja/reelforge/internal/metrics"
	"github.com/davidrioja/reelforge/internal/service"
)

// engine bundles the wired orchestration stack for CLI commands.
type engine struct {
	cfg         *config.Config
	logger      *logging.Logger
	loader      *config.Loader
	store       state.Store
	bus         *events.Bus
	compiler    *compile.Compiler
	coordinator *service.Coordinator
	extractor   *brand.Extractor
	collector   *metrics.Collector
}

// buildEngine loads configuration and wires every component the commands
// share.
func buildEngine() (*engine, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})

	store, err := state.Open(cfg.State.Backend, cfg.State.Path)
	if err != nil {
		return nil, err
	}

	bus := events.New(cfg.Events.BufferSize)

	client := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxRetries:  cfg.LLM.MaxRetries,
		RetryDelay:  cfg.LLM.RetryDelay,
		HTTPTimeout: cfg.LLM.HTTPTimeout,
	}, logger)

	registry := tool.NewRegistry(client, logger)
	analyzer := intent.NewAnalyzer(client, store, logger)
	processor := service.NewResultProcessor(store, bus, logger)
	executor := service.NewExecutor(registry, store, processor, bus, logger)
	compiler := compile.NewCompiler(store, bus, logger)

	coordinator := service.NewCoordinator(
		analyzer, executor, compiler, store, store, bus, logger,
		service.WithAutoRepair(cfg.Repair.Auto),
		service.WithMaxRepairAttempts(cfg.Repair.MaxAttempts),
	)

	var brandOpts []brand.Option
	if cfg.Brand.UserAgent != "" {
		brandOpts = append(brandOpts, brand.WithUserAgent(cfg.Brand.UserAgent))
	}
	if cfg.Brand.Timeout > 0 {
		brandOpts = append(brandOpts, brand.WithHTTPClient(httpClientWithTimeout(cfg.Brand.Timeout)))
	}

	return &engine{
		cfg:         cfg,
		logger:      logger,
		loader:      loader,
		store:       store,
		bus:         bus,
		compiler:    compiler,
		coordinator: coordinator,
		extractor:   brand.NewExtractor(logger, brandOpts...),
		collector:   metrics.NewCollector(bus, logger),
	}, nil
}

func httpClientWithTimeout(d time.Duration) *http.Client {
	return &http.Client{Timeout: d}
}

// Close releases engine resources.
func (e *engine) Close() {
	e.bus.Close()
	if err := state.Close(e.store); err != nil {
		e.logger.Warn("closing state store failed", "error", err)
	}
}
