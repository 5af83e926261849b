package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rtsnav/navsim/internal/flowfield"
	"github.com/rtsnav/navsim/internal/path"
	"github.com/rtsnav/navsim/internal/world"
)

// arrows is indexed by world.Direction.
var arrows = [world.DirCount]rune{'↑', '↗', '→', '↘', '↓', '↙', '←', '↖'}

// renderPath draws the grid with the path laid over it:
// S start, G goal, o jump point, * path cell, # blocked, . open.
func renderPath(w io.Writer, g *world.Grid, start, goal world.Cell, waypoints []world.Cell) {
	marks := make(map[world.Cell]rune)
	for _, c := range path.Expand(waypoints) {
		marks[c] = '*'
	}
	for _, c := range waypoints {
		marks[c] = 'o'
	}
	marks[start] = 'S'
	marks[goal] = 'G'

	bw := bufio.NewWriter(w)
	defer bw.Flush()
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c := world.Cell{X: x, Y: y}
			switch m, ok := marks[c]; {
			case ok:
				bw.WriteRune(m)
			case !g.PathAvailable(x, y):
				bw.WriteByte('#')
			default:
				bw.WriteByte('.')
			}
		}
		bw.WriteByte('\n')
	}
}

// renderField draws one glyph per cell of the field's rectangle: an arrow,
// T for the target, # for blocked cells and . for unreached ones. With costs
// set it prints the cost of every reached cell instead.
func renderField(w io.Writer, g *world.Grid, f *flowfield.Field, costs bool) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()
	r := f.Rect
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			c := world.Cell{X: x, Y: y}
			if costs {
				switch {
				case !g.PathAvailable(x, y):
					fmt.Fprintf(bw, "%4s", "#")
				case !f.Reached(c):
					fmt.Fprintf(bw, "%4s", ".")
				default:
					fmt.Fprintf(bw, "%4d", f.CostAt(c))
				}
				continue
			}
			switch d := f.DirAt(c); {
			case !g.PathAvailable(x, y):
				bw.WriteByte('#')
			case d == world.DirTarget:
				bw.WriteByte('T')
			case d.Valid():
				bw.WriteRune(arrows[d])
			default:
				bw.WriteByte('.')
			}
		}
		bw.WriteByte('\n')
	}
}
