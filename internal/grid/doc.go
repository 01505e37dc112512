// Package grid provides the tile-grid primitives shared by every driver.
//
// The package defines the data model of a tile wall:
//
//   - [ImageID]: index of an image in the catalog
//   - [Cell]: empty, pending (a load is in flight) or filled with a [Tile]
//   - [Grid]: N×N row-major array of cells with bounds-checked accessors
//   - [DisplayedSet]: ids currently bound to some cell, with
//     draw-without-replacement sampling of unused ids
//   - [Layout]: the shuffled blank/image slot plan for a fresh grid
//
// # Example
//
//	g := grid.New(4)
//	set := grid.NewDisplayedSet()
//	id, _ := set.SampleUnused(rng, 216) // id is now bound
//	g.Set(grid.Pos{Row: 0, Col: 1}, grid.Pending(id, 1))
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. Callers serialize all
// mutations on a single event loop.
package grid
