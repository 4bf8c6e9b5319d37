package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the tunable combat
// formulas. Each zone runtime owns its own Engine; a VM is never shared
// across goroutines.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under scriptsDir.
// A nil return with nil error means the directory does not exist and the
// callers should use the compiled-in formulas.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if _, err := os.Stat(scriptsDir); os.IsNotExist(err) {
		return nil, nil
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	for _, sub := range []string{"core", "combat"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory. Missing dirs are skipped.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
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

// Close releases the VM.
func (e *Engine) Close() {
	if e != nil && e.vm != nil {
		e.vm.Close()
	}
}

// DamageContext is the pre-packed input for the Lua calc_damage hook.
type DamageContext struct {
	AttackerStr   int
	AttackerLevel int
	WeaponCoef    float64
	TechMult      float64
	DefenderDef   int
	DefenderLevel int
}

// CalcDamage calls the Lua calc_damage function. The second return is
// false when no script overrides the formula, in which case the caller
// applies the built-in one.
func (e *Engine) CalcDamage(ctx DamageContext) (int, bool) {
	if e == nil || e.vm == nil {
		return 0, false
	}
	fn := e.vm.GetGlobal("calc_damage")
	if fn == lua.LNil {
		return 0, false
	}

	t := e.vm.NewTable()
	atk := e.vm.NewTable()
	atk.RawSetString("str", lua.LNumber(ctx.AttackerStr))
	atk.RawSetString("level", lua.LNumber(ctx.AttackerLevel))
	atk.RawSetString("weapon_coef", lua.LNumber(ctx.WeaponCoef))
	atk.RawSetString("tech_mult", lua.LNumber(ctx.TechMult))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("def", lua.LNumber(ctx.DefenderDef))
	tgt.RawSetString("level", lua.LNumber(ctx.DefenderLevel))
	t.RawSetString("target", tgt)

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, t); err != nil {
		e.log.Error("lua calc_damage error", zap.Error(err))
		return 0, false
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result)), true
}
