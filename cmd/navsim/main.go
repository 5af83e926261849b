// Command navsim runs and inspects the grid navigation simulation.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rtsnav/navsim/internal/config"
	"github.com/rtsnav/navsim/internal/data"
	"github.com/rtsnav/navsim/internal/world"
)

var (
	cfgPath string
	mapID   int
)

var rootCmd = &cobra.Command{
	Use:   "navsim",
	Short: "Grid navigation simulator",
	Long: `navsim moves agents across a tile map with jump point search, sector
flow fields and steering. "run" plays a scenario; "path" and "field" print
what the planner sees.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config/navsim.toml", "config file ("+config.EnvPath+" overrides)")
	rootCmd.PersistentFlags().IntVarP(&mapID, "map", "m", 0, "map id (0 = simulation.map_id)")
	rootCmd.AddCommand(runCmd, pathCmd, fieldCmd)
}

// setup loads the config and builds the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if mapID != 0 {
		cfg.Simulation.MapID = mapID
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// loadGrid reads the map list and builds the grid of the configured map.
func loadGrid(cfg *config.Config) (*data.MapDataTable, *world.Grid, error) {
	maps, err := data.LoadMapData(cfg.Data.MapList, cfg.Data.TileDir)
	if err != nil {
		return nil, nil, fmt.Errorf("map data: %w", err)
	}
	g, err := maps.NewGrid(cfg.Simulation.MapID)
	if err != nil {
		return nil, nil, err
	}
	return maps, g, nil
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

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}
