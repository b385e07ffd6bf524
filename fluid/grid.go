// Package fluid implements the numerical core of the hybrid PIC/FLIP
// simulator: particle/grid velocity transfer, pressure projection with
// boundary enforcement, particle separation, collision response, the
// particle density estimate, and the colour pipeline.
//
// All grids are column-major (idx = i*NumY + j) float32 buffers owned
// by the caller. Kernels mutate only the buffers documented as mutable
// and retain no references.
package fluid

// Cell classification values shared with callers through the cellType
// buffer. The numeric values are part of the buffer contract.
const (
	CellFluid int32 = 0
	CellAir   int32 = 1
	CellSolid int32 = 2
)

// Grid describes the fixed MAC-grid index space.
type Grid struct {
	NumX, NumY int
	H          float32
	InvH       float32
}

// NewGrid creates a grid with the given cell counts and spacing.
func NewGrid(numX, numY int, h float32) Grid {
	return Grid{NumX: numX, NumY: numY, H: h, InvH: 1.0 / h}
}

// NumCells returns the total cell count.
func (g Grid) NumCells() int { return g.NumX * g.NumY }

// Idx returns the flat column-major index of cell (i, j).
func (g Grid) Idx(i, j int) int { return i*g.NumY + j }

// CellCenter returns the world position of the centre of cell (i, j).
func (g Grid) CellCenter(i, j int) (x, y float32) {
	return (float32(i) + 0.5) * g.H, (float32(j) + 0.5) * g.H
}

// Circle is a disc in world coordinates.
type Circle struct {
	X, Y, R float32
}

// Contains reports whether (x, y) lies strictly inside the circle.
func (c Circle) Contains(x, y float32) bool {
	dx := x - c.X
	dy := y - c.Y
	return dx*dx+dy*dy < c.R*c.R
}

// Obstacle is the user-dragged circular body. Its velocity is imposed
// on adjacent faces during boundary enforcement and on overlapping
// particles during collision response.
type Obstacle struct {
	Active     bool
	X, Y, R    float32
	VelX, VelY float32
}

// isStaticWall reports whether cell (i, j) belongs to the static
// circular wall: out of the index range, or centred outside the tank.
func isStaticWall(i, j int, g Grid, tank Circle) bool {
	if i < 0 || i >= g.NumX || j < 0 || j >= g.NumY {
		return true
	}
	cx, cy := g.CellCenter(i, j)
	dx := cx - tank.X
	dy := cy - tank.Y
	return dx*dx+dy*dy > tank.R*tank.R
}

// isDraggable reports whether cell (i, j) lies strictly inside an
// active obstacle. Out-of-range cells are never draggable.
func isDraggable(i, j int, g Grid, obs Obstacle) bool {
	if !obs.Active {
		return false
	}
	if i < 0 || i >= g.NumX || j < 0 || j >= g.NumY {
		return false
	}
	cx, cy := g.CellCenter(i, j)
	dx := cx - obs.X
	dy := cy - obs.Y
	return dx*dx+dy*dy < obs.R*obs.R
}

// GridBuffers is the caller-owned MAC grid state handed to the kernels
// each step. Mutable buffers must not alias one another.
type GridBuffers struct {
	U, V         []float32 // face-centred velocity components
	DU, DV       []float32 // P->G weight accumulators (scratch)
	PrevU, PrevV []float32 // snapshot taken at the start of P->G
	P            []float32 // pressure, cell-centred
	S            []float32 // static solid mask: 0 = solid
	CellType     []int32   // FLUID/AIR/SOLID, rewritten each step
	Density      []float32 // bilinear particle count, cell-centred
}

// NewGridBuffers allocates a buffer set for the given grid.
func NewGridBuffers(g Grid) *GridBuffers {
	n := g.NumCells()
	return &GridBuffers{
		U:        make([]float32, n),
		V:        make([]float32, n),
		DU:       make([]float32, n),
		DV:       make([]float32, n),
		PrevU:    make([]float32, n),
		PrevV:    make([]float32, n),
		P:        make([]float32, n),
		S:        make([]float32, n),
		CellType: make([]int32, n),
		Density:  make([]float32, n),
	}
}
