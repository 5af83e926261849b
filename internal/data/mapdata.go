package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rtsnav/navsim/internal/world"
)

// MapInfo holds metadata for a single map, loaded from map_list.yaml.
type MapInfo struct {
	MapID  int    `yaml:"map_id"`
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// mapEntry stores loaded tile data + metadata for one map.
type mapEntry struct {
	info  MapInfo
	tiles []byte // flat array [y*width + x]
}

// MapDataTable provides map tile data and metadata lookups.
type MapDataTable struct {
	tileDir string
	maps    map[int]*mapEntry
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapData loads map metadata from YAML and tile data from text files.
// yamlPath: path to map_list.yaml
// tileDir: directory containing {mapid}.txt tile files
func LoadMapData(yamlPath, tileDir string) (*MapDataTable, error) {
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	table := &MapDataTable{
		tileDir: tileDir,
		maps:    make(map[int]*mapEntry, len(file.Maps)),
	}
	for _, info := range file.Maps {
		if info.Width <= 0 || info.Height <= 0 {
			return nil, fmt.Errorf("map %d: invalid size %dx%d", info.MapID, info.Width, info.Height)
		}
		if _, dup := table.maps[info.MapID]; dup {
			return nil, fmt.Errorf("map %d: listed twice", info.MapID)
		}
		tiles, err := LoadTileFile(TilePath(tileDir, info.MapID), info.Width, info.Height)
		if err != nil {
			return nil, fmt.Errorf("map %d: %w", info.MapID, err)
		}
		table.maps[info.MapID] = &mapEntry{info: info, tiles: tiles}
	}
	return table, nil
}

// TilePath returns the tile file of mapID inside dir.
func TilePath(dir string, mapID int) string {
	return filepath.Join(dir, strconv.Itoa(mapID)+".txt")
}

// MapIDFromPath extracts the map id from a tile file name, if it is one.
func MapIDFromPath(path string) (int, bool) {
	base := filepath.Base(path)
	if filepath.Ext(base) != ".txt" {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(base, ".txt"))
	if err != nil {
		return 0, false
	}
	return id, true
}

// LoadTileFile reads a CSV tile file: each line is a row of comma-separated
// tile flags, rows run north to south. Blank lines and lines starting with
// '#' are skipped. Short rows and missing rows stay open; unparsable values
// are an error.
func LoadTileFile(path string, width, height int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tile file: %w", err)
	}
	defer f.Close()

	tiles := make([]byte, width*height)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	y := 0
	line := 0
	for scanner.Scan() && y < height {
		line++
		text := strings.TrimSpace(scanner.Text())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		x := 0
		for _, tok := range strings.Split(text, ",") {
			if x >= width {
				break
			}
			val, err := strconv.ParseUint(strings.TrimSpace(tok), 10, 8)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", path, line, x+1, err)
			}
			tiles[y*width+x] = byte(val)
			x++
		}
		y++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return tiles, nil
}

// Count returns the number of maps loaded with tile data.
func (t *MapDataTable) Count() int {
	return len(t.maps)
}

// GetInfo returns metadata for a map, or nil if not found.
func (t *MapDataTable) GetInfo(mapID int) *MapInfo {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return &e.info
}

// Tiles returns the static tile flags of a map, row-major.
func (t *MapDataTable) Tiles(mapID int) []byte {
	e := t.maps[mapID]
	if e == nil {
		return nil
	}
	return e.tiles
}

// NewGrid builds a walkability grid with the map's static layer loaded.
func (t *MapDataTable) NewGrid(mapID int) (*world.Grid, error) {
	e := t.maps[mapID]
	if e == nil {
		return nil, fmt.Errorf("map %d not loaded", mapID)
	}
	g := world.NewGrid(e.info.Width, e.info.Height)
	if err := g.LoadStatic(e.tiles); err != nil {
		return nil, fmt.Errorf("map %d: %w", mapID, err)
	}
	return g, nil
}

// Reload re-reads a map's tile file and returns the new tiles. The table
// keeps the previous tiles when the file cannot be read.
func (t *MapDataTable) Reload(mapID int) ([]byte, error) {
	e := t.maps[mapID]
	if e == nil {
		return nil, fmt.Errorf("map %d not loaded", mapID)
	}
	tiles, err := LoadTileFile(TilePath(t.tileDir, mapID), e.info.Width, e.info.Height)
	if err != nil {
		return nil, fmt.Errorf("reload map %d: %w", mapID, err)
	}
	e.tiles = tiles
	return tiles, nil
}
