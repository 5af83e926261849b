package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/rtsnav/navsim/internal/core/ecs"
	"github.com/rtsnav/navsim/internal/core/event"
	"github.com/rtsnav/navsim/internal/sim"
	"github.com/rtsnav/navsim/internal/world"
)

// Navigator is the part of the simulation scripts may drive.
type Navigator interface {
	GoTo(id ecs.EntityID, cell world.Cell) error
	Stop(id ecs.EntityID) error
	SetEngaged(id ecs.EntityID, engaged bool) error
	View(id ecs.EntityID) (sim.AgentView, bool)
}

// Engine wraps a single gopher-lua VM running a scenario script.
// Single-goroutine access only (tick loop).
//
// Scripts see a global table nav:
//
//	nav.go_to(agent, x, y)  -> true | false, err
//	nav.stop(agent)         -> true | false, err
//	nav.engage(agent, on)   -> true | false, err
//	nav.cell(agent)         -> x, y | nil
//	nav.dest(agent)         -> x, y | nil
//	nav.state(agent)        -> "idle" | "move" | "engaged" | nil
//	nav.agents()            -> { name, ... }
//	nav.tick()              -> current tick
//	nav.log(msg)
//
// An agent is a scenario name or a numeric handle. The engine calls the
// optional globals on_tick(tick) and on_event(ev).
type Engine struct {
	vm    *lua.LState
	log   *zap.Logger
	nav   Navigator
	names map[string]ecs.EntityID
	byID  map[ecs.EntityID]string
	tick  uint64
}

// NewEngine creates a Lua engine bound to nav and loads the script at path.
// A directory loads every .lua file in it in name order; an empty path
// loads nothing.
func NewEngine(path string, nav Navigator, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:    vm,
		log:   log,
		nav:   nav,
		names: make(map[string]ecs.EntityID),
		byID:  make(map[ecs.EntityID]string),
	}
	e.registerNav()

	if path == "" {
		return e, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scenario script: %w", err)
	}
	if info.IsDir() {
		err = e.loadDir(path)
	} else {
		err = e.loadFile(path)
	}
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scenario script: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.loadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) loadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// SetNames binds scenario names to agent handles.
func (e *Engine) SetNames(names map[string]ecs.EntityID) {
	for name, id := range names {
		e.names[name] = id
		e.byID[id] = name
	}
}

// OnTick calls the script's on_tick hook. It implements system.TickHook.
func (e *Engine) OnTick(tick uint64) {
	e.tick = tick
	e.callHook("on_tick", lua.LNumber(tick))
}

// Attach forwards navigation events to the script's on_event hook.
func (e *Engine) Attach(bus *event.Bus) {
	event.Subscribe(bus, func(ev event.Arrived) {
		t := e.eventTable("arrived", ev.Entity)
		setCell(t, "x", "y", ev.Cell)
		e.callHook("on_event", t)
	})
	event.Subscribe(bus, func(ev event.PathFailed) {
		t := e.eventTable("path_failed", ev.Entity)
		setCell(t, "x", "y", ev.Destination)
		t.RawSetString("attempts", lua.LNumber(ev.Attempts))
		e.callHook("on_event", t)
	})
	event.Subscribe(bus, func(ev event.DestinationRelocated) {
		t := e.eventTable("relocated", ev.Entity)
		setCell(t, "from_x", "from_y", ev.From)
		setCell(t, "x", "y", ev.To)
		e.callHook("on_event", t)
	})
	event.Subscribe(bus, func(ev event.DestinationCancelled) {
		t := e.eventTable("cancelled", ev.Entity)
		setCell(t, "x", "y", ev.Destination)
		e.callHook("on_event", t)
	})
}

func (e *Engine) eventTable(kind string, id ecs.EntityID) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("type", lua.LString(kind))
	t.RawSetString("agent", e.agentValue(id))
	return t
}

func setCell(t *lua.LTable, kx, ky string, c world.Cell) {
	t.RawSetString(kx, lua.LNumber(c.X))
	t.RawSetString(ky, lua.LNumber(c.Y))
}

// agentValue returns the scenario name of id, or its numeric handle.
func (e *Engine) agentValue(id ecs.EntityID) lua.LValue {
	if name, ok := e.byID[id]; ok {
		return lua.LString(name)
	}
	return lua.LNumber(id)
}

// callHook calls an optional global function. Script errors are logged and
// never stop the simulation.
func (e *Engine) callHook(name string, args ...lua.LValue) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Uint64("tick", e.tick), zap.Error(err))
	}
}

// --- nav table ---

func (e *Engine) registerNav() {
	nav := e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"go_to":  e.luaGoTo,
		"stop":   e.luaStop,
		"engage": e.luaEngage,
		"cell":   e.luaCell,
		"dest":   e.luaDest,
		"state":  e.luaState,
		"agents": e.luaAgents,
		"tick":   e.luaTick,
		"log":    e.luaLog,
	})
	e.vm.SetGlobal("nav", nav)
}

// agentArg resolves argument n to an agent handle.
func (e *Engine) agentArg(L *lua.LState, n int) (ecs.EntityID, bool) {
	switch v := L.Get(n).(type) {
	case lua.LString:
		id, ok := e.names[string(v)]
		return id, ok
	case lua.LNumber:
		return ecs.EntityID(v), true
	}
	return 0, false
}

func fail(L *lua.LState, err error) int {
	L.Push(lua.LFalse)
	L.Push(lua.LString(err.Error()))
	return 2
}

func (e *Engine) luaGoTo(L *lua.LState) int {
	id, ok := e.agentArg(L, 1)
	if !ok {
		return fail(L, fmt.Errorf("unknown agent %s", L.Get(1).String()))
	}
	cell := world.Cell{X: L.CheckInt(2), Y: L.CheckInt(3)}
	if err := e.nav.GoTo(id, cell); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) luaStop(L *lua.LState) int {
	id, ok := e.agentArg(L, 1)
	if !ok {
		return fail(L, fmt.Errorf("unknown agent %s", L.Get(1).String()))
	}
	if err := e.nav.Stop(id); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) luaEngage(L *lua.LState) int {
	id, ok := e.agentArg(L, 1)
	if !ok {
		return fail(L, fmt.Errorf("unknown agent %s", L.Get(1).String()))
	}
	if err := e.nav.SetEngaged(id, L.OptBool(2, true)); err != nil {
		return fail(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) view(L *lua.LState) (sim.AgentView, bool) {
	id, ok := e.agentArg(L, 1)
	if !ok {
		return sim.AgentView{}, false
	}
	return e.nav.View(id)
}

func (e *Engine) luaCell(L *lua.LState) int {
	v, ok := e.view(L)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v.Cell.X))
	L.Push(lua.LNumber(v.Cell.Y))
	return 2
}

func (e *Engine) luaDest(L *lua.LState) int {
	v, ok := e.view(L)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v.Dest.X))
	L.Push(lua.LNumber(v.Dest.Y))
	return 2
}

func (e *Engine) luaState(L *lua.LState) int {
	v, ok := e.view(L)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v.State.String()))
	return 1
}

func (e *Engine) luaAgents(L *lua.LState) int {
	names := make([]string, 0, len(e.names))
	for name := range e.names {
		names = append(names, name)
	}
	sort.Strings(names)
	t := L.NewTable()
	for i, name := range names {
		t.RawSetInt(i+1, lua.LString(name))
	}
	L.Push(t)
	return 1
}

func (e *Engine) luaTick(L *lua.LState) int {
	L.Push(lua.LNumber(e.tick))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("script", zap.String("msg", L.CheckString(1)), zap.Uint64("tick", e.tick))
	return 0
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
