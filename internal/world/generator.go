package world

import "fmt"

// Generator produces the initial block/biome content for a column that
// missed the backing store. The actual terrain-generation math (simplex
// noise, biome decoration) is explicitly out of this core's scope (spec
// §1) — Generator is the seam the core calls through, and the generator
// below is a minimal flat-world stand-in sufficient to exercise the
// column lifecycle end to end.
type Generator interface {
	Generate(id ColumnID) (*Column, error)
}

// Populator is a deterministic post-generation decoration pass, run in a
// fixed order against an already-Generated column.
type Populator interface {
	Populate(col *Column) error
}

// ErrGeneratorMissing means no generator is registered for a column's
// (dimension, world type) — spec §7.
var ErrGeneratorMissing = fmt.Errorf("world: no generator registered")

// GeneratorKey selects a generator by dimension and world type name.
type GeneratorKey struct {
	Dimension int8
	WorldType string
}

// GeneratorRegistry maps (dimension, world_type) to the Generator that
// produces columns there (spec §3 World, §4.6 GeneratorMissing).
type GeneratorRegistry struct {
	byKey map[GeneratorKey]Generator
}

func NewGeneratorRegistry() *GeneratorRegistry {
	return &GeneratorRegistry{byKey: make(map[GeneratorKey]Generator)}
}

func (r *GeneratorRegistry) Register(dimension int8, worldType string, gen Generator) {
	r.byKey[GeneratorKey{dimension, worldType}] = gen
}

func (r *GeneratorRegistry) Lookup(dimension int8, worldType string) (Generator, error) {
	gen, ok := r.byKey[GeneratorKey{dimension, worldType}]
	if !ok {
		return nil, fmt.Errorf("%w: dimension=%d world_type=%q", ErrGeneratorMissing, dimension, worldType)
	}
	return gen, nil
}

// FlatGenerator produces a column whose bottom N layers are a fixed block
// type, biome 1 (plains) everywhere, and, when HasSky is set, full
// skylight above the surface — a deterministic, dependency-free stand-in
// for real terrain generation.
type FlatGenerator struct {
	SurfaceY   int
	GroundType uint16
	HasSky     bool
}

func (g FlatGenerator) Generate(id ColumnID) (*Column, error) {
	col := newColumn(id)
	for x := 0; x < ColumnWidth; x++ {
		for z := 0; z < ColumnDepth; z++ {
			for y := 0; y < ColumnHeight; y++ {
				if y <= g.SurfaceY {
					col.blocks[blockIndex(x, y, z)] = Block{Type: g.GroundType}
				} else if g.HasSky {
					col.blocks[blockIndex(x, y, z)] = Block{Skylight: 15}
				}
			}
			col.biomes[biomeIndex(x, z)] = 1 // plains
		}
	}
	col.state = Generated
	return col, nil
}

// BedrockPopulator stamps a bedrock layer at y=0, the first entry in a
// deterministic populator chain.
type BedrockPopulator struct{ BlockType uint16 }

func (p BedrockPopulator) Populate(col *Column) error {
	for x := 0; x < ColumnWidth; x++ {
		for z := 0; z < ColumnDepth; z++ {
			col.blocks[blockIndex(x, 0, z)] = Block{Type: p.BlockType}
		}
	}
	return nil
}

// SurfaceLightPopulator recomputes skylight down to the terrain surface —
// a small, deterministic second pass that runs after structural
// populators, demonstrating ordered chain composition.
type SurfaceLightPopulator struct{ SurfaceY int }

func (p SurfaceLightPopulator) Populate(col *Column) error {
	for x := 0; x < ColumnWidth; x++ {
		for z := 0; z < ColumnDepth; z++ {
			for y := p.SurfaceY + 1; y < ColumnHeight; y++ {
				idx := blockIndex(x, y, z)
				col.blocks[idx].Skylight = 15
			}
		}
	}
	return nil
}
