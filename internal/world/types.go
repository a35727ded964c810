// Package world implements the column store (spec §4.5): a keyed cache of
// 16×16×256 voxel columns with a load/generate/populate lifecycle,
// ref-counted interest, dirty-flag persistence, and coherent per-column
// broadcast to subscribed players.
package world

import "fmt"

// Dimensions per column, per spec §3.
const (
	ColumnWidth  = 16
	ColumnDepth  = 16
	ColumnHeight = 256
	blockCount   = ColumnWidth * ColumnDepth * ColumnHeight
	biomeCount   = ColumnWidth * ColumnDepth
)

// ColumnID identifies a column: its x/z in 16-block units and the
// dimension it belongs to.
type ColumnID struct {
	X         int32
	Z         int32
	Dimension int8
}

func (id ColumnID) String() string {
	return fmt.Sprintf("%d,%d,%d", id.Dimension, id.X, id.Z)
}

// State is a column's position in its Loading -> Generated -> Populated
// lifecycle. State is monotone non-decreasing for the life of a Column
// (spec §8, invariant 4).
type State int

const (
	Loading State = iota
	Generating
	Generated
	Populating
	Populated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "Loading"
	case Generating:
		return "Generating"
	case Generated:
		return "Generated"
	case Populating:
		return "Populating"
	case Populated:
		return "Populated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Block packs the four per-cell lanes the wire format carries.
type Block struct {
	Type     uint16 // 12 bits significant
	Metadata uint8  // 4 bits significant
	Light    uint8  // 4 bits significant
	Skylight uint8  // 4 bits significant
}

func blockIndex(x, y, z int) int {
	return y + (z * ColumnHeight) + (x * ColumnHeight * ColumnDepth)
}

func biomeIndex(x, z int) int {
	return z*ColumnWidth + x
}

func inBounds(x, y, z int) bool {
	return x >= 0 && x < ColumnWidth && y >= 0 && y < ColumnHeight && z >= 0 && z < ColumnDepth
}
