package detection

import (
	"math"
	"sort"
)

// Circle is a circle in edge-map pixel space. The center may sit between
// pixel centers.
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Diameter returns 2 × Radius, the pixel-space trunk diameter estimate.
func (c Circle) Diameter() float64 {
	return 2 * c.Radius
}

// EnclosingCircle computes the minimum enclosing circle of the contour's
// vertices: the smallest circle containing every vertex.
//
// Contours with fewer than three distinct vertices carry no measurable
// cross-section and yield a zero-radius circle centered on the first vertex
// rather than an error; the caller's plausibility checks deal with the zero
// diameter.
//
// # Algorithm
//
//  1. Reduce the vertices to their convex hull (monotone chain). Only hull
//     vertices can touch the minimum circle, and a pixel contour has far
//     fewer hull vertices than boundary pixels.
//  2. Grow the circle incrementally over the hull in a fixed order: when a
//     vertex falls outside the current circle, recompute the smallest
//     circle with that vertex pinned to the boundary, first alone, then
//     paired with each earlier boundary candidate.
//
// The fixed processing order makes the result deterministic for identical
// input.
func EnclosingCircle(c Contour) Circle {
	pts := distinctVertices(c.Points)
	if len(pts) == 0 {
		return Circle{}
	}
	if len(pts) < 3 {
		first := c.Points[0]
		return Circle{X: float64(first.X), Y: float64(first.Y), Radius: 0}
	}

	return minCircle(convexHull(pts))
}

type fpoint struct {
	x, y float64
}

// containsFactor absorbs floating-point error in containment checks so a
// vertex sitting exactly on the boundary is not rejected by the last bit of
// a square root.
const containsFactor = 1 + 1e-14

func (c Circle) contains(p fpoint) bool {
	return math.Hypot(p.x-c.X, p.y-c.Y) <= c.Radius*containsFactor
}

// distinctVertices converts contour vertices to float points, sorted by
// (x, y) with duplicates removed. The ordering doubles as monotone-chain
// input.
func distinctVertices(points []Point) []fpoint {
	pts := make([]fpoint, len(points))
	for i, p := range points {
		pts[i] = fpoint{x: float64(p.X), y: float64(p.Y)}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})

	distinct := make([]fpoint, 0, len(pts))
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			distinct = append(distinct, p)
		}
	}
	return distinct
}

// convexHull builds the convex hull of sorted distinct points with Andrew's
// monotone chain, dropping collinear vertices. Collinear input collapses to
// its two extreme points.
func convexHull(pts []fpoint) []fpoint {
	if len(pts) <= 2 {
		return pts
	}

	var lower []fpoint
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []fpoint
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// cross is the z-component of (a-o) × (b-o): positive when o→a→b turns
// counterclockwise in image coordinates.
func cross(o, a, b fpoint) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

// minCircle grows the minimum enclosing circle over the points in order.
func minCircle(pts []fpoint) Circle {
	c := Circle{X: pts[0].x, Y: pts[0].y, Radius: 0}
	for i, p := range pts {
		if c.contains(p) {
			continue
		}
		c = circleWithPoint(pts[:i], p)
	}
	return c
}

// circleWithPoint finds the smallest circle over pts with q on its
// boundary. The caller guarantees q lies outside the best circle for pts
// alone, which pins q to the boundary of the result.
func circleWithPoint(pts []fpoint, q fpoint) Circle {
	c := Circle{X: q.x, Y: q.y, Radius: 0}
	for i, p := range pts {
		if c.contains(p) {
			continue
		}
		if c.Radius == 0 {
			c = circleFromTwo(p, q)
		} else {
			c = circleWithTwoPoints(pts[:i], p, q)
		}
	}
	return c
}

// circleWithTwoPoints finds the smallest circle over pts with both q1 and
// q2 on its boundary. Candidate circumcircles are tracked separately for
// points on either side of the q1–q2 chord and the smaller survivor wins.
func circleWithTwoPoints(pts []fpoint, q1, q2 fpoint) Circle {
	circ := circleFromTwo(q1, q2)
	left := Circle{Radius: -1}
	right := Circle{Radius: -1}

	for _, p := range pts {
		if circ.contains(p) {
			continue
		}

		side := cross(q1, q2, p)
		c := circumcircle(q1, q2, p)
		if c.Radius < 0 {
			continue
		}
		centerSide := cross(q1, q2, fpoint{x: c.X, y: c.Y})
		switch {
		case side > 0 && (left.Radius < 0 || centerSide > cross(q1, q2, fpoint{x: left.X, y: left.Y})):
			left = c
		case side < 0 && (right.Radius < 0 || centerSide < cross(q1, q2, fpoint{x: right.X, y: right.Y})):
			right = c
		}
	}

	switch {
	case left.Radius < 0 && right.Radius < 0:
		return circ
	case left.Radius < 0:
		return right
	case right.Radius < 0:
		return left
	case left.Radius <= right.Radius:
		return left
	default:
		return right
	}
}

// circleFromTwo returns the circle with the segment ab as its diameter, the
// smallest circle containing both endpoints.
func circleFromTwo(a, b fpoint) Circle {
	c := fpoint{x: (a.x + b.x) / 2, y: (a.y + b.y) / 2}
	r := math.Max(dist(c, a), dist(c, b))
	return Circle{X: c.x, Y: c.y, Radius: r}
}

// circumcircle returns the circle through three points, or a radius of -1
// when they are collinear and no finite circumcircle exists. Coordinates
// are shifted toward the points before solving to limit cancellation error.
func circumcircle(a, b, c fpoint) Circle {
	ox := (math.Min(math.Min(a.x, b.x), c.x) + math.Max(math.Max(a.x, b.x), c.x)) / 2
	oy := (math.Min(math.Min(a.y, b.y), c.y) + math.Max(math.Max(a.y, b.y), c.y)) / 2

	ax, ay := a.x-ox, a.y-oy
	bx, by := b.x-ox, b.y-oy
	cx, cy := c.x-ox, c.y-oy

	d := (ax*(by-cy) + bx*(cy-ay) + cx*(ay-by)) * 2
	if d == 0 {
		return Circle{Radius: -1}
	}

	x := ox + ((ax*ax+ay*ay)*(by-cy)+(bx*bx+by*by)*(cy-ay)+(cx*cx+cy*cy)*(ay-by))/d
	y := oy + ((ax*ax+ay*ay)*(cx-bx)+(bx*bx+by*by)*(ax-cx)+(cx*cx+cy*cy)*(bx-ax))/d

	center := fpoint{x: x, y: y}
	r := math.Max(math.Max(dist(center, a), dist(center, b)), dist(center, c))
	return Circle{X: x, Y: y, Radius: r}
}

func dist(a, b fpoint) float64 {
	return math.Hypot(a.x-b.x, a.y-b.y)
}
