package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/armoralley/server/internal/config"
	"github.com/armoralley/server/internal/core/event"
	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/data"
	"github.com/armoralley/server/internal/mirror"
	"github.com/armoralley/server/internal/persist"
	"github.com/armoralley/server/internal/scripting"
	"github.com/armoralley/server/internal/system"
	"github.com/armoralley/server/internal/unit"
	"github.com/armoralley/server/internal/world"
	"github.com/google/uuid"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner(match uuid.UUID) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          Armor Alley  headless            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mmatch:\033[0m %s\n\n", match)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("ARMORALLEY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if p := startProfile(cfg.Profile); p != nil {
		defer p.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matchID := uuid.New()
	printBanner(matchID)

	// 1. Catalogue and scripts
	printSection("data")
	units, err := data.LoadUnitTable(cfg.Data.Units)
	if err != nil {
		return fmt.Errorf("load unit table: %w", err)
	}
	printStat("unit templates", units.Count())

	spawns, err := data.LoadSpawnList(cfg.Data.Spawns, units)
	if err != nil {
		return fmt.Errorf("load spawn list: %w", err)
	}
	printStat("spawn entries", len(spawns))

	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua scripts loaded")

	// 2. Simulation
	ws := world.NewState(world.Options{
		FrameDuration: cfg.Simulation.FrameDuration(),
		ZoneWidth:     cfg.Simulation.ZoneWidth,
		ViewWidth:     cfg.Viewport.Width,
		ViewHeight:    cfg.Viewport.Height,
		WorldWidth:    cfg.Viewport.WorldWidth,
		Strict:        cfg.Simulation.Strict,
		Log:           log,
	})
	if err := ws.Zones.CheckReach(units.Reach()); err != nil {
		return fmt.Errorf("simulation.zone_width: %w", err)
	}
	ws.Scenery.AddLayer("sky", 0.1, nil)
	ws.Scenery.AddLayer("hills", 0.5, nil)

	factory := unit.NewFactory(ws, units, luaEngine, nil)
	spawned, err := factory.SpawnList(spawns)
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}
	printStat("units spawned", spawned)
	fmt.Println()

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(ws))
	entities := system.NewEntitySystem(ws, units.Cosmetic(), factory.BattleOver)
	entities.SetBattleOverFrames(cfg.Simulation.BattleOverFrames)
	runner.Register(entities)
	runner.Register(system.NewScenerySystem(ws))
	runner.Register(system.NewTimerSystem(ws))

	result := "aborted"
	event.Subscribe(ws.Bus, func(e event.BattleOver) {
		result = factory.Winner()
		log.Info("battle decided", zap.Uint64("frame", e.Frame), zap.String("winner", result))
	})
	var removed int
	event.Subscribe(ws.Bus, func(event.EntityRemoved) { removed++ })

	// 3. Match journal
	var (
		repo       *persist.MatchRepo
		journal    *persist.Journal
		journalSys *system.JournalSystem
	)
	if cfg.Database.Enabled {
		printSection("database")
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(dbCtx, db.Pool)
		if err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		printStat("schema version", int(version))

		repo = persist.NewMatchRepo(db)
		err = repo.Begin(dbCtx, matchID, cfg.Simulation.FrameDuration(), spawned)
		cancel()
		if err != nil {
			return err
		}
		journal = persist.NewJournal(matchID, repo, 8, log)
		go journal.Run(context.Background())
		journalSys = system.NewJournalSystem(ws, journal, cfg.Database.FlushEvery)
		runner.Register(journalSys)
		fmt.Println()
	}

	// 4. Spectator mirror
	var httpSrv *http.Server
	var hub *mirror.Hub
	if cfg.Mirror.Enabled {
		hub = mirror.NewHub(mirror.HubConfig{
			TokenHash:    cfg.Mirror.TokenHash,
			SendQueue:    cfg.Mirror.SendQueue,
			WriteTimeout: cfg.Mirror.WriteTimeout,
		}, log)
		runner.Register(system.NewMirrorSystem(ws, hub, matchID.String(), cfg.Mirror.SnapshotEvery))

		mux := http.NewServeMux()
		mux.Handle("/mirror", hub)
		httpSrv = &http.Server{Addr: cfg.Mirror.BindAddress, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("mirror listener", zap.Error(err))
			}
		}()
	}

	// 5. Game loop
	source := coresys.NewTickerSource(cfg.Simulation.RefreshInterval())
	loop := coresys.NewLoop(runner, source, coresys.LoopConfig{
		FrameDuration: cfg.Simulation.FrameDuration(),
		Refresh:       cfg.Simulation.RefreshInterval(),
		Unlimited:     cfg.Simulation.Unlimited,
		AfterStep:     ws.EndFrame,
	})
	loop.Start()

	printSection("ready")
	if httpSrv != nil {
		printReady(fmt.Sprintf("mirror on ws://%s/mirror", cfg.Mirror.BindAddress))
	}
	printReady(fmt.Sprintf("game loop running (frame: %s)", cfg.Simulation.FrameDuration()))
	fmt.Println()

	if err := source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("frame source: %w", err)
	}
	loop.Stop()
	log.Info("shutting down",
		zap.Uint64("frames", loop.Frames()),
		zap.Uint64("skipped_callbacks", loop.Skipped()),
		zap.Int("removed", removed),
		zap.Int("live", ws.Registry.Len()),
	)

	// 6. Shutdown: flush the journal before closing the match row.
	if hub != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		httpSrv.Shutdown(shutdownCtx)
		cancel()
		hub.Close()
	}
	if journal != nil {
		journalSys.Flush()
		journal.Close()
		written, dropped := journal.Stats()
		log.Info("journal closed", zap.Int64("digests", written), zap.Int("dropped_batches", dropped))

		finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Finish(finishCtx, matchID, ws.Frame(), result); err != nil {
			log.Error("finish match", zap.Error(err))
		}
	}
	return nil
}

// startProfile starts pkg/profile for the configured mode, or returns nil.
func startProfile(cfg config.ProfileConfig) interface{ Stop() } {
	opts := []func(*profile.Profile){profile.NoShutdownHook}
	if cfg.Path != "" {
		opts = append(opts, profile.ProfilePath(cfg.Path))
	}
	switch cfg.Mode {
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfile)
	case "trace":
		opts = append(opts, profile.TraceProfile)
	default:
		return nil
	}
	return profile.Start(opts...)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
