package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rtsnav/navsim/internal/config"
	"github.com/rtsnav/navsim/internal/core/ecs"
	"github.com/rtsnav/navsim/internal/core/event"
	"github.com/rtsnav/navsim/internal/data"
	"github.com/rtsnav/navsim/internal/metrics"
	"github.com/rtsnav/navsim/internal/scripting"
	"github.com/rtsnav/navsim/internal/sim"
	"github.com/rtsnav/navsim/internal/system"
)

var (
	runTicks    int
	runFast     bool
	runScenario string
	runScript   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a scenario",
	Long: `Load the map and scenario, hand the agents to the optional Lua script
and tick until interrupted or until the tick limit is reached.`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

func init() {
	runCmd.Flags().IntVarP(&runTicks, "ticks", "n", -1, "stop after n ticks (default simulation.max_ticks, 0 = forever)")
	runCmd.Flags().BoolVar(&runFast, "fast", false, "tick as fast as possible instead of at simulation.tick_rate")
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "scenario YAML (default data.scenario)")
	runCmd.Flags().StringVar(&runScript, "script", "", "scenario Lua script (default data.script)")
}

func runSim(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	if runTicks >= 0 {
		cfg.Simulation.MaxTicks = runTicks
	}
	if runScenario != "" {
		cfg.Data.Scenario = runScenario
	}
	if runScript != "" {
		cfg.Data.Script = runScript
	}

	printSection("Map")
	maps, grid, err := loadGrid(cfg)
	if err != nil {
		return err
	}
	info := maps.GetInfo(cfg.Simulation.MapID)
	printStat("maps", maps.Count())
	printOK(fmt.Sprintf("map %d %q %dx%d", info.MapID, info.Name, info.Width, info.Height))

	collector := metrics.New()
	s, err := sim.New(cfg, grid, log, collector)
	if err != nil {
		return err
	}

	printSection("Scenario")
	names, err := spawnScenario(s, cfg.Data.Scenario, log)
	if err != nil {
		return err
	}
	printStat("agents", len(names))
	logEvents(s.Bus(), names, log)

	if cfg.Data.Script != "" {
		engine, err := scripting.NewEngine(cfg.Data.Script, s, log)
		if err != nil {
			return err
		}
		defer engine.Close()
		engine.SetNames(names)
		engine.Attach(s.Bus())
		s.Register(system.NewScriptSystem(engine))
		printOK("script " + cfg.Data.Script)
	}

	if cfg.Data.Watch {
		w, err := data.NewWatcher(cfg.Data.TileDir)
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Data.TileDir, err)
		}
		defer w.Close()
		go func() {
			for err := range w.Errors {
				log.Warn("tile watcher", zap.Error(err))
			}
		}()
		s.Register(system.NewStaticReloadSystem(s.Deps(), w.Events, maps, cfg.Simulation.MapID))
		printOK("watching " + cfg.Data.TileDir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		srv := serveMetrics(cfg.Metrics, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		printReady("metrics on http://" + cfg.Metrics.BindAddress + "/metrics")
	}

	printSection("Running")
	printReady(fmt.Sprintf("tick %s, limit %d", cfg.Simulation.TickRate, cfg.Simulation.MaxTicks))
	fmt.Println()

	loop(ctx, s, cfg.Simulation, runFast)
	log.Info("simulation stopped", zap.Uint64("ticks", s.Ticks()))

	printAgents(os.Stdout, s, names)
	return nil
}

// loop ticks s until ctx ends or the tick limit is reached.
func loop(ctx context.Context, s *sim.Sim, cfg config.SimulationConfig, fast bool) {
	done := func() bool {
		return cfg.MaxTicks > 0 && s.Ticks() >= uint64(cfg.MaxTicks)
	}
	if fast {
		for !done() {
			if ctx.Err() != nil {
				return
			}
			s.Tick()
		}
		return
	}

	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()
	for !done() {
		select {
		case <-ticker.C:
			s.Tick()
		case <-ctx.Done():
			return
		}
	}
}

// spawnScenario places the scenario's blockers and agents and issues their
// initial orders. It returns the agent handles by name.
func spawnScenario(s *sim.Sim, path string, log *zap.Logger) (map[string]ecs.EntityID, error) {
	names := make(map[string]ecs.EntityID)
	if path == "" {
		return names, nil
	}
	sc, err := data.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	if sc.MapID != 0 && sc.MapID != s.Config().Simulation.MapID {
		log.Warn("scenario written for another map",
			zap.Int("scenario_map", sc.MapID), zap.Int("map", s.Config().Simulation.MapID))
	}

	for _, b := range sc.Blockers {
		if _, err := s.AddBlocker(b.Cell.Cell(), b.Width, b.Height); err != nil {
			return nil, fmt.Errorf("blocker %s: %w", b.Name, err)
		}
	}
	for i, a := range sc.Agents {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("agent%d", i+1)
		}
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("agent %s: duplicate name", name)
		}
		id, err := s.Spawn(a.Cell.Cell(), a.Speed)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		names[name] = id
		if a.GoTo != nil {
			if err := s.GoTo(id, a.GoTo.Cell()); err != nil {
				return nil, fmt.Errorf("agent %s: %w", name, err)
			}
		}
	}
	return names, nil
}

// logEvents reports navigation events at info level, failures at debug.
func logEvents(bus *event.Bus, names map[string]ecs.EntityID, log *zap.Logger) {
	byID := make(map[ecs.EntityID]string, len(names))
	for name, id := range names {
		byID[id] = name
	}
	agent := func(id ecs.EntityID) zap.Field {
		if name, ok := byID[id]; ok {
			return zap.String("agent", name)
		}
		return zap.Stringer("agent", id)
	}

	event.Subscribe(bus, func(e event.Arrived) {
		log.Info("arrived", agent(e.Entity), zap.Int("x", e.Cell.X), zap.Int("y", e.Cell.Y))
	})
	event.Subscribe(bus, func(e event.PathFailed) {
		log.Debug("path failed", agent(e.Entity), zap.Int("attempts", e.Attempts))
	})
	event.Subscribe(bus, func(e event.DestinationRelocated) {
		log.Info("destination relocated", agent(e.Entity),
			zap.Int("from_x", e.From.X), zap.Int("from_y", e.From.Y),
			zap.Int("to_x", e.To.X), zap.Int("to_y", e.To.Y))
	})
	event.Subscribe(bus, func(e event.DestinationCancelled) {
		log.Warn("destination cancelled", agent(e.Entity),
			zap.Int("x", e.Destination.X), zap.Int("y", e.Destination.Y))
	})
}

func serveMetrics(cfg config.MetricsConfig, c *metrics.Collector, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              cfg.BindAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}

// printAgents writes the final state of every named agent.
func printAgents(w io.Writer, s *sim.Sim, names map[string]ecs.EntityID) {
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tCELL\tDEST\tSTATE\tHEADING")
	for _, name := range sorted {
		v, ok := s.View(names[name])
		if !ok {
			fmt.Fprintf(tw, "%s\t-\t-\tremoved\t-\n", name)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d,%d\t%d,%d\t%s\t%s\n", name, v.Cell.X, v.Cell.Y, v.Dest.X, v.Dest.Y, v.State, v.Heading)
	}
	tw.Flush()
}
