package fluid

// ParticleBuffers is the caller-owned particle state, struct-of-arrays:
// two floats per particle for position and velocity, four (RGBA, each
// in [0,1]) for colour.
type ParticleBuffers struct {
	Pos   []float32
	Vel   []float32
	Color []float32
	N     int
}

// NewParticleBuffers allocates particle state for capacity particles.
func NewParticleBuffers(capacity int) *ParticleBuffers {
	return &ParticleBuffers{
		Pos:   make([]float32, 2*capacity),
		Vel:   make([]float32, 2*capacity),
		Color: make([]float32, 4*capacity),
	}
}

// ParticleGrid bins particles into a coarse uniform grid to accelerate
// neighbour queries. Storage is CSR-style: particles in bin c occupy
// CellIDs[FirstCell[c]:FirstCell[c+1]].
type ParticleGrid struct {
	NumX, NumY int
	InvSpacing float32
	FirstCell  []int32
	CellIDs    []int32
}

// NewParticleGrid creates a bin grid with the given dimensions and
// reciprocal spacing, sized for up to capacity particles.
func NewParticleGrid(numX, numY int, invSpacing float32, capacity int) *ParticleGrid {
	return &ParticleGrid{
		NumX:       numX,
		NumY:       numY,
		InvSpacing: invSpacing,
		FirstCell:  make([]int32, numX*numY+1),
		CellIDs:    make([]int32, capacity),
	}
}

// binIndex returns the flat bin index for a world position, clamped to
// the bin grid.
func (pg *ParticleGrid) binIndex(x, y float32) int {
	xi := int(clampFloat(floorf(x*pg.InvSpacing), 0, float32(pg.NumX-1)))
	yi := int(clampFloat(floorf(y*pg.InvSpacing), 0, float32(pg.NumY-1)))
	return xi*pg.NumY + yi
}

// Rebuild re-bins the first n particles of pos with a counting sort.
// After Rebuild, FirstCell holds prefix offsets and CellIDs the
// particle indices grouped by bin.
func (pg *ParticleGrid) Rebuild(pos []float32, n int) {
	numCells := pg.NumX * pg.NumY
	for c := 0; c <= numCells; c++ {
		pg.FirstCell[c] = 0
	}

	// Count per bin
	for i := 0; i < n; i++ {
		c := pg.binIndex(pos[2*i], pos[2*i+1])
		pg.FirstCell[c]++
	}

	// Prefix sums; the guard slot ends up holding n
	var first int32
	for c := 0; c < numCells; c++ {
		first += pg.FirstCell[c]
		pg.FirstCell[c] = first
	}
	pg.FirstCell[numCells] = first

	// Fill in, walking offsets backwards
	for i := 0; i < n; i++ {
		c := pg.binIndex(pos[2*i], pos[2*i+1])
		pg.FirstCell[c]--
		pg.CellIDs[pg.FirstCell[c]] = int32(i)
	}
}
