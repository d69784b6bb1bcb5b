// alleyctl is the operator tool for the headless simulation.
//
// Usage:
//
//	go run ./cmd/alleyctl <command> [flags]
//
// Commands: hashtoken, validate, replay, compare
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/armoralley/server/internal/config"
	coresys "github.com/armoralley/server/internal/core/system"
	"github.com/armoralley/server/internal/data"
	"github.com/armoralley/server/internal/mirror"
	"github.com/armoralley/server/internal/persist"
	"github.com/armoralley/server/internal/scripting"
	"github.com/armoralley/server/internal/system"
	"github.com/armoralley/server/internal/unit"
	"github.com/armoralley/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func printUsage() {
	fmt.Println("Usage: alleyctl <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  hashtoken  Print a bcrypt hash for [mirror] token_hash")
	fmt.Println("  validate   Load unit_list.yaml and spawn_list.yaml and report counts")
	fmt.Println("  replay     Step the simulation without a clock and print its digest")
	fmt.Println("  compare    Find the first frame where two journaled matches diverge")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config/server.toml", "server config")
	token := fs.String("token", "", "spectator token (hashtoken)")
	frames := fs.Int("frames", 900, "frames to simulate (replay)")
	matchA := fs.String("a", "", "first match id (compare)")
	matchB := fs.String("b", "", "second match id (compare)")
	_ = fs.Parse(os.Args[2:])

	var err error
	switch cmd {
	case "hashtoken":
		err = hashToken(*token)
	case "validate":
		err = validate(*cfgPath)
	case "replay":
		err = replay(*cfgPath, *frames)
	case "compare":
		err = compare(*cfgPath, *matchA, *matchB)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func hashToken(token string) error {
	if token == "" {
		return fmt.Errorf("-token is required")
	}
	h, err := mirror.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Println(h)
	return nil
}

func loadData(cfg *config.Config) (*data.UnitTable, []data.SpawnEntry, error) {
	units, err := data.LoadUnitTable(cfg.Data.Units)
	if err != nil {
		return nil, nil, err
	}
	spawns, err := data.LoadSpawnList(cfg.Data.Spawns, units)
	if err != nil {
		return nil, nil, err
	}
	return units, spawns, nil
}

func validate(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	units, spawns, err := loadData(cfg)
	if err != nil {
		return err
	}
	if err := world.NewZoneIndex(cfg.Simulation.ZoneWidth).CheckReach(units.Reach()); err != nil {
		return fmt.Errorf("simulation.zone_width: %w", err)
	}
	fmt.Printf("%d unit templates, %d spawn entries\n", units.Count(), len(spawns))
	for _, k := range units.Order() {
		fmt.Printf("  %-12s %s\n", k, units.Get(k).Caps())
	}
	return nil
}

// replay runs the configured battle on a manual frame source. Two replays of
// the same data must print the same digest.
func replay(cfgPath string, frames int) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	units, spawns, err := loadData(cfg)
	if err != nil {
		return err
	}
	log := zap.NewNop()
	lua, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return err
	}
	defer lua.Close()

	ws := world.NewState(world.Options{
		FrameDuration: cfg.Simulation.FrameDuration(),
		ZoneWidth:     cfg.Simulation.ZoneWidth,
		ViewWidth:     cfg.Viewport.Width,
		ViewHeight:    cfg.Viewport.Height,
		WorldWidth:    cfg.Viewport.WorldWidth,
		Strict:        true,
		Log:           log,
	})
	if err := ws.Zones.CheckReach(units.Reach()); err != nil {
		return fmt.Errorf("simulation.zone_width: %w", err)
	}
	factory := unit.NewFactory(ws, units, lua, nil)
	if _, err := factory.SpawnList(spawns); err != nil {
		return err
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(ws))
	entities := system.NewEntitySystem(ws, units.Cosmetic(), factory.BattleOver)
	entities.SetBattleOverFrames(cfg.Simulation.BattleOverFrames)
	runner.Register(entities)
	runner.Register(system.NewTimerSystem(ws))

	src := &coresys.ManualSource{}
	loop := coresys.NewLoop(runner, src, coresys.LoopConfig{Unlimited: true, AfterStep: ws.EndFrame})
	loop.Start()
	for i := 0; i < frames; i++ {
		if !src.Fire(time.Duration(i) * cfg.Simulation.FrameDuration()) {
			break
		}
	}
	loop.Stop()

	fmt.Printf("frames=%d live=%d winner=%q digest=%016x\n",
		loop.Frames(), ws.Registry.Len(), factory.Winner(), world.Digest(ws.Registry))
	return nil
}

func compare(cfgPath, a, b string) error {
	idA, err := uuid.Parse(a)
	if err != nil {
		return fmt.Errorf("-a: %w", err)
	}
	idB, err := uuid.Parse(b)
	if err != nil {
		return fmt.Errorf("-b: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return err
	}
	defer db.Close()

	repo := persist.NewMatchRepo(db)
	const all = 1<<63 - 1
	da, err := repo.Digests(ctx, idA, 0, all)
	if err != nil {
		return err
	}
	db2, err := repo.Digests(ctx, idB, 0, all)
	if err != nil {
		return err
	}
	if frame, ok := persist.FirstDivergence(da, db2); ok {
		fmt.Printf("diverged at frame %d\n", frame)
		return nil
	}
	fmt.Printf("identical over %d frames\n", min(len(da), len(db2)))
	return nil
}
