package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rtsnav/navsim/internal/flowfield"
	"github.com/rtsnav/navsim/internal/path"
	"github.com/rtsnav/navsim/internal/world"
)

var pathCmd = &cobra.Command{
	Use:   "path SX SY GX GY",
	Short: "Print the jump point path between two cells",
	Args:  cobra.ExactArgs(4),
	RunE:  runPath,
}

var (
	fieldSector int
	fieldHood   string
	fieldCosts  bool
)

var fieldCmd = &cobra.Command{
	Use:   "field TX TY [CX CY]",
	Short: "Print the flow field toward a target",
	Long: `Build the flow field toward TX,TY over the whole map, or over the sector
centred on CX,CY when a centre is given, and print one arrow per cell.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 && len(args) != 4 {
			return fmt.Errorf("accepts 2 or 4 args, received %d", len(args))
		}
		return nil
	},
	RunE: runField,
}

func init() {
	fieldCmd.Flags().IntVar(&fieldSector, "sector", 0, "sector size around the centre (default navigation.sector_size)")
	fieldCmd.Flags().StringVar(&fieldHood, "neighborhood", "", "octile or cardinal (default navigation.neighborhood)")
	fieldCmd.Flags().BoolVar(&fieldCosts, "costs", false, "print costs instead of directions")
}

func parseCells(args []string) ([]world.Cell, error) {
	cells := make([]world.Cell, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		x, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		y, err := strconv.Atoi(args[i+1])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+2, err)
		}
		cells = append(cells, world.Cell{X: x, Y: y})
	}
	return cells, nil
}

func runPath(_ *cobra.Command, args []string) error {
	cells, err := parseCells(args)
	if err != nil {
		return err
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	_, grid, err := loadGrid(cfg)
	if err != nil {
		return err
	}

	start, goal := cells[0], cells[1]
	searcher := path.NewSearcher()
	found, waypoints := searcher.Find(grid, start, goal)
	if !found {
		renderPath(os.Stdout, grid, start, goal, nil)
		return fmt.Errorf("no path from %d,%d to %d,%d (%d nodes expanded)",
			start.X, start.Y, goal.X, goal.Y, searcher.Expanded)
	}
	renderPath(os.Stdout, grid, start, goal, waypoints)
	fmt.Printf("\nwaypoints %d  cells %d  length %.2f  expanded %d\n",
		len(waypoints), len(path.Expand(waypoints)), path.Length(waypoints), searcher.Expanded)
	return nil
}

func runField(_ *cobra.Command, args []string) error {
	cells, err := parseCells(args)
	if err != nil {
		return err
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	_, grid, err := loadGrid(cfg)
	if err != nil {
		return err
	}

	name := cfg.Navigation.Neighborhood
	if fieldHood != "" {
		name = fieldHood
	}
	hood, ok := flowfield.ParseNeighborhood(name)
	if !ok {
		return fmt.Errorf("unknown neighborhood %q", name)
	}

	target := cells[0]
	rect := flowfield.Rect{W: grid.Width(), H: grid.Height()}
	if len(cells) == 2 {
		size := cfg.Navigation.SectorSize
		if fieldSector > 0 {
			size = fieldSector
		}
		rect = flowfield.Sector(cells[1], size).Clip(grid.Width(), grid.Height())
	}

	f := flowfield.New(hood)
	if !f.Build(grid, rect, target) {
		return fmt.Errorf("target %d,%d outside the field %+v", target.X, target.Y, rect)
	}
	renderField(os.Stdout, grid, f, fieldCosts)
	return nil
}
