package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "aquaponics_monitor/docs"
	"aquaponics_monitor/internal/broker"
	"aquaponics_monitor/internal/config"
	"aquaponics_monitor/internal/emulator"
	"aquaponics_monitor/internal/handlers"
	"aquaponics_monitor/internal/logger"
	"aquaponics_monitor/internal/metrics"
	"aquaponics_monitor/internal/repository"
	"aquaponics_monitor/internal/repository/db"
	"aquaponics_monitor/internal/server"
	"aquaponics_monitor/internal/service"
)

const shutdownTimeout = 10 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "aquaponics",
	Short: "Aquaponics tank monitor and controller",
	Long: `Relays tank telemetry and actuator commands between the dashboard and a
ThingSpeak channel, runs the automatic pump cycle and an optional emulator.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the emulator scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTITLE\tDESCRIPTION")
		for _, s := range emulator.Scenarios() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Title, s.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default configs/config.yml)")
	rootCmd.AddCommand(scenariosCmd)
}

// @title                       Aquaponics Monitor API
// @version                     1.0
// @description                 Tank telemetry, actuator control and the automatic pump cycle over a ThingSpeak channel.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		return err
	}

	// init logger
	log := logger.GetWithFormat(cfg.LogLevel, cfg.LogFormat)

	// open DB
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("init sqlite: %w", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	m := metrics.New()
	unit := broker.LevelUnit(cfg.ThingSpeak.LevelUnit)

	// wire dependencies
	sw := broker.NewSwitch(newBrokerClient(cfg, m, log))

	store := emulator.NewConfigStore(cfg.Emulator.ConfigPath)
	emuCfg, err := store.Load()
	if err != nil {
		log.Warnw("emulator config unreadable; using defaults", "err", err)
		emuCfg = emulator.DefaultConfig()
	}
	emu, err := emulator.New(emuCfg, nil, nil, unit)
	if err != nil {
		return fmt.Errorf("init emulator: %w", err)
	}

	repos := repository.NewRepository(sqlDB, time.Now)
	services, err := service.NewService(repos, sw, emu, store, serviceConfig(cfg, unit),
		service.WithLogger(log),
		service.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	apiHandler := handlers.NewHandler(services, log, handlers.Options{
		AuthEnabled: cfg.Auth.Enabled,
		Metrics:     m,
	})

	// context for background goroutines
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := services.Bootstrap(ctx); err != nil {
		// the reconciler keeps polling; the dashboard shows an empty state until then
		log.Errorw("bootstrap failed", "err", err)
	}

	loops := make(chan struct{})
	go func() {
		defer close(loops)
		services.Run(ctx)
	}()

	// start HTTP server
	srv := &server.Server{}
	serveErr := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "port", cfg.Port, "auth", cfg.Auth.Enabled, "broker", cfg.BrokerConfigured())
		serveErr <- srv.Run(cfg.Port, apiHandler.InitRoutes())
	}()

	// graceful shutdown
	select {
	case <-ctx.Done():
		log.Infow("shutting down server...")
	case err := <-serveErr:
		if err != nil {
			log.Errorw("error starting server", "err", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	<-loops
	return nil
}

// newBrokerClient returns nil when no channel is configured so that only the
// emulator can serve data.
func newBrokerClient(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) broker.Broker {
	if !cfg.BrokerConfigured() {
		log.Warnw("thingspeak channel not configured; start the emulator to get data")
		return nil
	}
	ts := cfg.ThingSpeak
	return broker.NewClient(ts.BaseURL, ts.ChannelID, ts.ReadAPIKey, ts.WriteAPIKey,
		broker.WithTimeout(ts.Timeout),
		broker.WithBreaker(ts.BreakerFailures, ts.BreakerTimeout),
		broker.WithObserver(m.BrokerRequest),
	)
}

func serviceConfig(cfg *config.Config, unit broker.LevelUnit) service.Config {
	return service.Config{
		Device: service.DeviceConfig{
			StatusResults:       cfg.ThingSpeak.StatusResults,
			ToggleCooldown:      cfg.Reconciler.ToggleCooldown,
			PollInterval:        cfg.Reconciler.PollInterval,
			StuckSyncTimeout:    cfg.Reconciler.StuckSyncTimeout,
			BootstrapMaxElapsed: cfg.ThingSpeak.BootstrapMaxElapsed,
		},
		Reading: service.ReadingConfig{
			LevelUnit:     unit,
			StatusResults: cfg.ThingSpeak.StatusResults,
			Interval:      cfg.Collector.Interval,
			CacheSize:     cfg.History.CacheSize,
			CacheTTL:      cfg.History.CacheTTL,
		},
		CycleTick:  cfg.PumpCycle.Tick,
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
	}
}
