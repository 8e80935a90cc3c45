// Command fusiond runs the decision-fusion daemon: the multi-agent
// analysis pipeline behind an HTTP API plus a Prometheus metrics server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantfuse/quantfuse/internal/agents"
	"github.com/quantfuse/quantfuse/internal/api"
	"github.com/quantfuse/quantfuse/internal/config"
	"github.com/quantfuse/quantfuse/internal/consensus"
	"github.com/quantfuse/quantfuse/internal/metrics"
	"github.com/quantfuse/quantfuse/internal/narrative"
	"github.com/quantfuse/quantfuse/internal/portfolio"
	"github.com/quantfuse/quantfuse/internal/risk"
	"github.com/quantfuse/quantfuse/internal/router"
	"github.com/quantfuse/quantfuse/internal/weights"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().
		Str("version", cfg.App.Version).
		Str("environment", cfg.App.Environment).
		Msg("Starting QuantFuse fusion daemon")

	// Seed adaptive weights from config, keyed by agent type.
	seed := map[agents.Type]float64{}
	for name, w := range cfg.Weights.BaseWeights() {
		seed[agents.Type(name)] = w
	}
	store := weights.NewStore(seed)
	tracker := weights.NewTracker(store)

	gate := risk.NewGate(risk.GateConfig{
		MaxDrawdownLimit:    cfg.Risk.MaxDrawdownLimit,
		DrawdownRejectRatio: cfg.Risk.DrawdownRejectRatio,
		MaxPositionSize:     cfg.Risk.MaxPositionSize,
		VolatilityThreshold: cfg.Risk.VolatilityThreshold,
		VolatilityThrottle:  cfg.Risk.VolatilityThrottle,
		TakeProfitRatio:     cfg.Risk.TakeProfitRatio,
	})

	ksCfg := risk.DefaultKillSwitchConfig()
	ksCfg.VaRBudget = cfg.KillSwitch.VaRBudget
	ksCfg.TriggerThreshold = cfg.KillSwitch.TriggerThreshold
	ksCfg.CriticalThreshold = cfg.KillSwitch.CriticalThreshold
	ksCfg.EmergencyThreshold = cfg.KillSwitch.EmergencyThreshold
	ksCfg.HorizonDays = cfg.KillSwitch.HorizonDays
	killSwitch := risk.NewKillSwitch(ksCfg)

	engineCfg := consensus.DefaultConfig()
	engineCfg.AgentTimeout = cfg.Consensus.AgentTimeout()
	engineCfg.StrongSellFraction = cfg.Consensus.StrongSellFraction
	engineCfg.SellFraction = cfg.Consensus.SellFraction

	assets := router.New(gate, store, engineCfg)
	if cfg.Narrative.Enabled {
		assets.WithNarrator(narrative.NewClient(narrative.ClientConfig{
			Endpoint:      cfg.Narrative.Endpoint,
			APIKey:        cfg.Narrative.APIKey,
			Model:         cfg.Narrative.Model,
			Temperature:   cfg.Narrative.Temperature,
			MaxTokens:     cfg.Narrative.MaxTokens,
			Timeout:       cfg.Narrative.NarrativeTimeout(),
			RatePerSecond: cfg.Narrative.RatePerSecond,
			Burst:         cfg.Narrative.Burst,
		}))
	}

	var metricsServer *metrics.Server
	if cfg.Monitoring.Enabled {
		metricsServer = metrics.NewServer(cfg.Monitoring.MetricsPort, log.Logger)
		if err := metricsServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start metrics server")
		}
	}

	server := api.NewServer(api.Config{
		Host:        cfg.API.Host,
		Port:        cfg.API.Port,
		CORSOrigins: cfg.API.CORSOrigins,
		Assets:      assets,
		Aggregator:  portfolio.NewAggregator(),
		KillSwitch:  killSwitch,
		Tracker:     tracker,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error().Err(err).Msg("Server error")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop server gracefully")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server gracefully")
		}
	}

	log.Info().Msg("Fusion daemon stopped")
}
