package main

import "math"

// gridCellKey addresses one square cell of the yard partition.
type gridCellKey struct {
	X int
	Y int
}

// gridEntry records where an entity was last indexed. The grid never reads a
// live position owned by the caller; Insert/Update receive coordinates by
// value and queries filter against the coordinates captured here.
type gridEntry struct {
	cell gridCellKey
	x    float64
	y    float64
}

// GridDebugInfo is a diagnostic snapshot of grid occupancy.
type GridDebugInfo struct {
	CellCount          int     `json:"cellCount"`
	EntityCount        int     `json:"entityCount"`
	AvgEntitiesPerCell float64 `json:"avgEntitiesPerCell"`
	MaxEntitiesPerCell int     `json:"maxEntitiesPerCell"`
}

// SpatialGrid partitions a dynamic 2D point set into uniform square cells so
// proximity queries only touch the cells overlapping the query region. Each
// entity occupies exactly one cell at a time. The grid does no locking; the
// hub serializes access under its own mutex.
type SpatialGrid struct {
	cellSize    float64
	invCellSize float64
	cells       map[gridCellKey][]string
	entries     map[string]gridEntry
}

// NewSpatialGrid builds an empty grid. A non-positive cellSize falls back to
// defaultGridCellSize.
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = defaultGridCellSize
	}
	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[gridCellKey][]string),
		entries:     make(map[string]gridEntry),
	}
}

// CellSize reports the configured cell edge length.
func (g *SpatialGrid) CellSize() float64 {
	return g.cellSize
}

// Insert indexes id at (x, y). Re-inserting a present id moves it, so Insert
// never leaves the same id in two cells.
func (g *SpatialGrid) Insert(id string, x, y float64) {
	if id == "" {
		return
	}
	if prev, ok := g.entries[id]; ok {
		g.removeFromCell(id, prev.cell)
	}
	cell := g.cellFor(x, y)
	g.cells[cell] = append(g.cells[cell], id)
	g.entries[id] = gridEntry{cell: cell, x: x, y: y}
}

// Remove drops id from the grid. Removing an absent id is a no-op.
func (g *SpatialGrid) Remove(id string) {
	entry, ok := g.entries[id]
	if !ok {
		return
	}
	g.removeFromCell(id, entry.cell)
	delete(g.entries, id)
}

// Update re-indexes id after its position changed. When the new position maps
// to the same cell only the recorded coordinates are refreshed; the common
// small-movement case touches no buckets. An unknown id is indexed fresh.
func (g *SpatialGrid) Update(id string, x, y float64) {
	if id == "" {
		return
	}
	entry, ok := g.entries[id]
	if !ok {
		g.Insert(id, x, y)
		return
	}
	cell := g.cellFor(x, y)
	if cell == entry.cell {
		if x != entry.x || y != entry.y {
			g.entries[id] = gridEntry{cell: cell, x: x, y: y}
		}
		return
	}
	g.removeFromCell(id, entry.cell)
	g.cells[cell] = append(g.cells[cell], id)
	g.entries[id] = gridEntry{cell: cell, x: x, y: y}
}

// FindInRadius returns the ids of every indexed entity within radius of
// (x, y), inclusive. It scans the block of cells that could overlap the
// circle, padded by one cell, then applies the exact squared-distance test.
// Order is unspecified.
func (g *SpatialGrid) FindInRadius(x, y, radius float64) []string {
	if radius < 0 {
		return nil
	}
	center := g.cellFor(x, y)
	reach := 1
	if radius > 0 {
		reach = int(math.Ceil(radius*g.invCellSize)) + 1
	}
	radiusSq := radius * radius

	var result []string
	// A very large radius can span more cells than are occupied; walking the
	// cell map directly is cheaper then.
	span := 2*reach + 1
	if float64(span)*float64(span) > float64(len(g.cells)) {
		for cell, bucket := range g.cells {
			if cell.X < center.X-reach || cell.X > center.X+reach || cell.Y < center.Y-reach || cell.Y > center.Y+reach {
				continue
			}
			result = g.appendWithinRadius(result, bucket, x, y, radiusSq)
		}
		return result
	}
	for row := center.Y - reach; row <= center.Y+reach; row++ {
		for col := center.X - reach; col <= center.X+reach; col++ {
			bucket, ok := g.cells[gridCellKey{X: col, Y: row}]
			if !ok {
				continue
			}
			result = g.appendWithinRadius(result, bucket, x, y, radiusSq)
		}
	}
	return result
}

func (g *SpatialGrid) appendWithinRadius(result []string, bucket []string, x, y, radiusSq float64) []string {
	for _, id := range bucket {
		entry := g.entries[id]
		dx := entry.x - x
		dy := entry.y - y
		if dx*dx+dy*dy <= radiusSq {
			result = append(result, id)
		}
	}
	return result
}

// FindInRect returns the ids of every indexed entity inside the closed
// rectangle [x, x+width] x [y, y+height]. Order is unspecified.
func (g *SpatialGrid) FindInRect(x, y, width, height float64) []string {
	minCell := g.cellFor(x, y)
	maxCell := g.cellFor(x+width, y+height)

	var result []string
	cols := float64(maxCell.X-minCell.X) + 1
	rows := float64(maxCell.Y-minCell.Y) + 1
	if cols*rows > float64(len(g.cells)) {
		for cell, bucket := range g.cells {
			if cell.X < minCell.X || cell.X > maxCell.X || cell.Y < minCell.Y || cell.Y > maxCell.Y {
				continue
			}
			result = g.appendWithinRect(result, bucket, x, y, width, height)
		}
		return result
	}
	for row := minCell.Y; row <= maxCell.Y; row++ {
		for col := minCell.X; col <= maxCell.X; col++ {
			bucket, ok := g.cells[gridCellKey{X: col, Y: row}]
			if !ok {
				continue
			}
			result = g.appendWithinRect(result, bucket, x, y, width, height)
		}
	}
	return result
}

func (g *SpatialGrid) appendWithinRect(result []string, bucket []string, x, y, width, height float64) []string {
	for _, id := range bucket {
		entry := g.entries[id]
		if entry.x >= x && entry.x <= x+width && entry.y >= y && entry.y <= y+height {
			result = append(result, id)
		}
	}
	return result
}

// All returns every indexed id in unspecified order.
func (g *SpatialGrid) All() []string {
	result := make([]string, 0, len(g.entries))
	for id := range g.entries {
		result = append(result, id)
	}
	return result
}

// Has reports whether id is currently indexed.
func (g *SpatialGrid) Has(id string) bool {
	_, ok := g.entries[id]
	return ok
}

// Len reports the number of indexed entities.
func (g *SpatialGrid) Len() int {
	return len(g.entries)
}

// Clear drops every entity without iterating them.
func (g *SpatialGrid) Clear() {
	g.cells = make(map[gridCellKey][]string)
	g.entries = make(map[string]gridEntry)
}

// DebugInfo scans the cell map and reports occupancy statistics.
func (g *SpatialGrid) DebugInfo() GridDebugInfo {
	info := GridDebugInfo{
		CellCount:   len(g.cells),
		EntityCount: len(g.entries),
	}
	for _, bucket := range g.cells {
		if len(bucket) > info.MaxEntitiesPerCell {
			info.MaxEntitiesPerCell = len(bucket)
		}
	}
	if info.CellCount > 0 {
		info.AvgEntitiesPerCell = float64(info.EntityCount) / float64(info.CellCount)
	}
	return info
}

func (g *SpatialGrid) removeFromCell(id string, cell gridCellKey) {
	bucket := g.cells[cell]
	for i := range bucket {
		if bucket[i] != id {
			continue
		}
		bucket[i] = bucket[len(bucket)-1]
		bucket = bucket[:len(bucket)-1]
		break
	}
	if len(bucket) == 0 {
		delete(g.cells, cell)
	} else {
		g.cells[cell] = bucket
	}
}

// cellFor floors toward negative infinity so cells tile consistently across
// the origin.
func (g *SpatialGrid) cellFor(x, y float64) gridCellKey {
	return gridCellKey{
		X: int(math.Floor(x * g.invCellSize)),
		Y: int(math.Floor(y * g.invCellSize)),
	}
}
