package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtsnav/navsim/internal/world"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func fixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	list := filepath.Join(dir, "map_list.yaml")
	tiles := filepath.Join(dir, "map")
	writeFile(t, list, `
maps:
  - map_id: 1
    name: test field
    width: 4
    height: 3
`)
	writeFile(t, TilePath(tiles, 1), `# 4x3
0,0,1,0

0,2,1,0
0,0,0
`)
	return list, tiles
}

func TestLoadMapData(t *testing.T) {
	list, tiles := fixture(t)
	table, err := LoadMapData(list, tiles)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Count())
	info := table.GetInfo(1)
	require.NotNil(t, info)
	assert.Equal(t, "test field", info.Name)
	assert.Nil(t, table.GetInfo(2))

	assert.Equal(t, []byte{
		0, 0, 1, 0,
		0, 2, 1, 0,
		0, 0, 0, 0,
	}, table.Tiles(1))

	g, err := table.NewGrid(1)
	require.NoError(t, err)
	assert.False(t, g.PathAvailable(2, 0))
	assert.False(t, g.PathAvailable(1, 1), "decor blocks")
	assert.True(t, g.PathAvailable(3, 2))

	_, err = table.NewGrid(9)
	assert.Error(t, err)
}

func TestLoadMapDataErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadMapData(filepath.Join(dir, "nope.yaml"), dir)
	assert.ErrorContains(t, err, "read map list")

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "maps: [")
	_, err = LoadMapData(bad, dir)
	assert.ErrorContains(t, err, "parse map list")

	missing := filepath.Join(dir, "missing.yaml")
	writeFile(t, missing, "maps:\n  - {map_id: 5, width: 2, height: 2}\n")
	_, err = LoadMapData(missing, dir)
	assert.ErrorContains(t, err, "map 5")

	writeFile(t, TilePath(dir, 6), "0,x\n")
	garbled := filepath.Join(dir, "garbled.yaml")
	writeFile(t, garbled, "maps:\n  - {map_id: 6, width: 2, height: 1}\n")
	_, err = LoadMapData(garbled, dir)
	assert.ErrorContains(t, err, "column 2")
}

func TestReloadKeepsOldTilesOnError(t *testing.T) {
	list, tiles := fixture(t)
	table, err := LoadMapData(list, tiles)
	require.NoError(t, err)

	writeFile(t, TilePath(tiles, 1), "1,1,1,1\n")
	fresh, err := table.Reload(1)
	require.NoError(t, err)
	assert.Equal(t, byte(1), fresh[3])
	assert.Equal(t, byte(0), fresh[4])

	require.NoError(t, os.Remove(TilePath(tiles, 1)))
	_, err = table.Reload(1)
	assert.Error(t, err)
	assert.Equal(t, fresh, table.Tiles(1))
}

func TestMapIDFromPath(t *testing.T) {
	id, ok := MapIDFromPath("/x/y/12.txt")
	assert.True(t, ok)
	assert.Equal(t, 12, id)
	_, ok = MapIDFromPath("/x/y/notes.txt")
	assert.False(t, ok)
	_, ok = MapIDFromPath("/x/y/12.yaml")
	assert.False(t, ok)
}

func TestLoadScenario(t *testing.T) {
	p := filepath.Join(t.TempDir(), "scenario.yaml")
	writeFile(t, p, `
map_id: 1
agents:
  - name: scout
    cell: [0, 0]
    speed: 6
    goto: [7, 7]
  - name: idle
    cell: [3, 1]
blockers:
  - name: barracks
    cell: [4, 4]
    width: 2
    height: 3
`)
	sc, err := LoadScenario(p)
	require.NoError(t, err)
	require.Len(t, sc.Agents, 2)
	assert.Equal(t, world.Cell{X: 0, Y: 0}, sc.Agents[0].Cell.Cell())
	require.NotNil(t, sc.Agents[0].GoTo)
	assert.Equal(t, world.Cell{X: 7, Y: 7}, sc.Agents[0].GoTo.Cell())
	assert.Nil(t, sc.Agents[1].GoTo)
	require.Len(t, sc.Blockers, 1)
	assert.Equal(t, 3, sc.Blockers[0].Height)

	writeFile(t, p, "blockers:\n  - {cell: [1, 1], width: 0, height: 1}\n")
	_, err = LoadScenario(p)
	assert.ErrorContains(t, err, "invalid size")
}

func TestWatcherReportsTileWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, filepath.Join(dir, "notes.md"), "ignored")
	writeFile(t, TilePath(dir, 3), "0,0\n")

	select {
	case id := <-w.Events:
		assert.Equal(t, 3, id)
	case <-time.After(5 * time.Second):
		t.Fatal("no watcher event")
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")
}
