package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for unit decision scripts.
// Single-goroutine access only (game loop). Scripts must be deterministic:
// mirrored simulations call them with identical inputs and expect identical output.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under scriptsDir.
// A missing directory yields an engine with no decision hooks.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	for _, sub := range []string{"core", "units"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// NewEngineFromString creates an engine from a single script body.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// UnitContext is the snapshot a decision script sees.
type UnitContext struct {
	Kind       string
	Frame      uint64
	X, Y       float64
	HP, MaxHP  int
	Enemy      bool
	HasTarget  bool
	TargetKind string
	TargetGap  float64
	CanFire    bool
}

// Decision is what a script asks the unit to do this frame.
type Decision struct {
	Fire bool
	Hold bool // stop moving
}

// HasDecider reports whether a decide_<kind> function is defined.
func (e *Engine) HasDecider(kind string) bool {
	return e.vm.GetGlobal("decide_"+kind) != lua.LNil
}

// Decide calls decide_<kind>(ctx). ok is false when no script handles the kind
// or the script failed; callers then fall back to built-in behaviour.
func (e *Engine) Decide(ctx UnitContext) (d Decision, ok bool) {
	fn := e.vm.GetGlobal("decide_" + ctx.Kind)
	if fn == lua.LNil {
		return Decision{}, false
	}

	t := e.vm.NewTable()
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("frame", lua.LNumber(ctx.Frame))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))
	t.RawSetString("enemy", lua.LBool(ctx.Enemy))
	t.RawSetString("can_fire", lua.LBool(ctx.CanFire))
	if ctx.HasTarget {
		tgt := e.vm.NewTable()
		tgt.RawSetString("kind", lua.LString(ctx.TargetKind))
		tgt.RawSetString("gap", lua.LNumber(ctx.TargetGap))
		t.RawSetString("target", tgt)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua decide error", zap.String("kind", ctx.Kind), zap.Error(err))
		return Decision{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua decide returned non-table", zap.String("kind", ctx.Kind))
		return Decision{}, false
	}
	return Decision{
		Fire: lua.LVAsBool(rt.RawGetString("fire")),
		Hold: lua.LVAsBool(rt.RawGetString("hold")),
	}, true
}

// CalcDamage calls calc_damage(attacker, target, base) when defined and
// returns base otherwise.
func (e *Engine) CalcDamage(attacker, target string, base int) int {
	fn := e.vm.GetGlobal("calc_damage")
	if fn == lua.LNil {
		return base
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(attacker), lua.LString(target), lua.LNumber(base)); err != nil {
		e.log.Error("lua calc_damage error", zap.Error(err))
		return base
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
