package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rtsnav/navsim/internal/world"
)

// Point is a cell written as [x, y] in YAML.
type Point [2]int

func (p Point) Cell() world.Cell { return world.Cell{X: p[0], Y: p[1]} }

// AgentSpawn places one agent and optionally orders it somewhere.
type AgentSpawn struct {
	Name  string  `yaml:"name"`
	Cell  Point   `yaml:"cell"`
	Speed float64 `yaml:"speed"` // 0 = steering.max_speed
	GoTo  *Point  `yaml:"goto"`
}

// BlockerSpawn places a building or blocking decor.
type BlockerSpawn struct {
	Name   string `yaml:"name"`
	Cell   Point  `yaml:"cell"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Scenario is the initial population of a simulation run.
type Scenario struct {
	MapID    int            `yaml:"map_id"`
	Agents   []AgentSpawn   `yaml:"agents"`
	Blockers []BlockerSpawn `yaml:"blockers"`
}

// LoadScenario reads a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	for i, b := range sc.Blockers {
		if b.Width <= 0 || b.Height <= 0 {
			return nil, fmt.Errorf("scenario %s: blocker %d (%s): invalid size %dx%d", path, i, b.Name, b.Width, b.Height)
		}
	}
	for i, a := range sc.Agents {
		if a.Speed < 0 {
			return nil, fmt.Errorf("scenario %s: agent %d (%s): negative speed", path, i, a.Name)
		}
	}
	return &sc, nil
}
