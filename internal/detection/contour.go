package detection

import (
	"errors"
	"math"

	"github.com/arborworks/tree-census/internal/imaging"
)

// ErrNoContour means the edge map contains no edge pixels to trace. A blank
// map is a valid edge-detection result, so the failure is reported here,
// where a trunk boundary was expected and none was found.
var ErrNoContour = errors.New("no contour found")

// Point is a pixel coordinate on an edge map.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Contour is the closed outer boundary of one connected group of edge
// pixels. Points run clockwise along the boundary starting at the group's
// topmost-leftmost pixel; the polygon closes implicitly from the last point
// back to the first. A contour is never empty: an isolated edge pixel
// produces a single-point contour.
type Contour struct {
	Points []Point
}

// Area returns the area enclosed by the contour polygon in square pixels,
// computed with the shoelace formula over the vertex sequence. Open curves
// traced down one side and back up the other enclose almost nothing;
// contours with fewer than three vertices enclose exactly nothing. Never
// negative.
func (c Contour) Area() float64 {
	n := len(c.Points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		p := c.Points[i]
		q := c.Points[(i+1)%n]
		sum += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}
	return math.Abs(sum) / 2
}

// TraceContours finds every 8-connected group of edge pixels and traces the
// outer boundary of each into a closed polygon. Groups are discovered in
// row-major scan order, which fixes the order of the returned slice; holes
// inside a group are never entered.
func TraceContours(edges *imaging.EdgeMap) []Contour {
	visited := make([][]bool, edges.Height)
	for y := range visited {
		visited[y] = make([]bool, edges.Width)
	}

	var contours []Contour
	for y := 0; y < edges.Height; y++ {
		for x := 0; x < edges.Width; x++ {
			if !edges.Pixels[y][x] || visited[y][x] {
				continue
			}
			// The scan meets each group first at the leftmost pixel of its
			// topmost row, the canonical start for boundary tracing.
			contours = append(contours, Contour{Points: traceBoundary(edges, x, y)})
			markGroup(edges, visited, x, y)
		}
	}
	return contours
}

// LargestContour traces all contours and returns the one enclosing the
// largest area, assumed to outline the trunk cross-section. Returns
// ErrNoContour when the edge map yields no contours at all.
func LargestContour(edges *imaging.EdgeMap) (Contour, error) {
	best, ok := Largest(TraceContours(edges))
	if !ok {
		return Contour{}, ErrNoContour
	}
	return best, nil
}

// Largest returns the contour enclosing the most area. When several enclose
// exactly the same area the earliest in the slice is kept, so for contours
// in scan order repeated calls on one edge map always agree. ok is false
// for an empty slice.
func Largest(contours []Contour) (best Contour, ok bool) {
	if len(contours) == 0 {
		return Contour{}, false
	}

	best = contours[0]
	bestArea := best.Area()
	for _, c := range contours[1:] {
		if a := c.Area(); a > bestArea {
			best = c
			bestArea = a
		}
	}
	return best, true
}

// ring is the Moore neighborhood in clockwise order starting due west.
// Consecutive entries address adjacent cells, which boundary tracing relies
// on when it resumes a scan from the last empty cell.
var ring = [8]Point{
	{-1, 0},  // W
	{-1, -1}, // NW
	{0, -1},  // N
	{1, -1},  // NE
	{1, 0},   // E
	{1, 1},   // SE
	{0, 1},   // S
	{-1, 1},  // SW
}

// ringIndex returns the position of cell in the Moore ring around center.
// The cell must be one of the eight neighbors.
func ringIndex(center, cell Point) int {
	dx := cell.X - center.X
	dy := cell.Y - center.Y
	for i, d := range ring {
		if d.X == dx && d.Y == dy {
			return i
		}
	}
	return 0
}

// traceBoundary walks the outer boundary of the edge-pixel group containing
// the start pixel using Moore-neighbor tracing: from each boundary pixel,
// scan the neighborhood clockwise beginning just past the empty cell the
// previous scan stopped at, and step to the first edge pixel found. The
// walk ends when it is back at the start pixel about to repeat its first
// move (Jacob's stopping criterion).
//
// The start pixel must be the topmost-leftmost pixel of its group, which
// guarantees the cell to its west is empty and the clockwise walk follows
// the outside of the group.
func traceBoundary(edges *imaging.EdgeMap, startX, startY int) []Point {
	start := Point{X: startX, Y: startY}
	points := []Point{start}

	cur := start
	backtrack := Point{X: startX - 1, Y: startY}
	var second Point
	haveSecond := false

	// Every boundary pixel is visited at most a handful of times; the cap
	// only guards against a malformed edge map.
	maxSteps := 4*edges.Width*edges.Height + 8
	for step := 0; step < maxSteps; step++ {
		bIdx := ringIndex(cur, backtrack)
		found := -1
		for i := 1; i <= 8; i++ {
			d := (bIdx + i) % 8
			n := Point{X: cur.X + ring[d].X, Y: cur.Y + ring[d].Y}
			if edges.At(n.X, n.Y) {
				found = d
				break
			}
			backtrack = n
		}
		if found < 0 {
			// Isolated pixel with no edge neighbors.
			return points
		}

		next := Point{X: cur.X + ring[found].X, Y: cur.Y + ring[found].Y}
		if haveSecond && cur == start && next == second {
			break
		}
		if !haveSecond {
			second = next
			haveSecond = true
		}
		points = append(points, next)
		cur = next
	}

	// The walk re-appends the start pixel as it closes; drop the duplicate
	// so the polygon closes implicitly.
	if len(points) > 1 && points[len(points)-1] == points[0] {
		points = points[:len(points)-1]
	}
	return points
}

// markGroup flood-fills the 8-connected group containing (x, y) so the
// row-major scan does not trace it twice. Stack-based rather than recursive
// to stay safe on large groups.
func markGroup(edges *imaging.EdgeMap, visited [][]bool, x, y int) {
	stack := []Point{{X: x, Y: y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= edges.Width || p.Y < 0 || p.Y >= edges.Height {
			continue
		}
		if visited[p.Y][p.X] || !edges.Pixels[p.Y][p.X] {
			continue
		}
		visited[p.Y][p.X] = true

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}
