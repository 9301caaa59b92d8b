package universe

import "math"

type gridKey struct {
	X int
	Y int
}

// Grid is a uniform-bucket spatial index rebuilt once per tick from a live
// collection. Query scans the 3x3 bucket neighborhood around a position and
// filters by exact Euclidean distance, so no neighbor within radius is
// missed as long as the grid cell size is >= every query radius used
// against it.
type Grid[T any] struct {
	cellSize float64
	at       func(T) Vec2
	buckets  map[gridKey][]T
}

func NewGrid[T any](cellSize float64, at func(T) Vec2) *Grid[T] {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid[T]{
		cellSize: cellSize,
		at:       at,
		buckets:  make(map[gridKey][]T),
	}
}

func (g *Grid[T]) keyFor(p Vec2) gridKey {
	return gridKey{
		X: int(math.Floor(p.X / g.cellSize)),
		Y: int(math.Floor(p.Y / g.cellSize)),
	}
}

func (g *Grid[T]) Insert(item T) {
	k := g.keyFor(g.at(item))
	g.buckets[k] = append(g.buckets[k], item)
}

// Query appends every item within radius of p to dst and returns it.
// Passing a reused dst slice avoids per-call allocation. For radius <=
// cellSize this is the 3x3 bucket neighborhood; larger radii widen the
// scan so no true neighbor is ever missed.
func (g *Grid[T]) Query(p Vec2, radius float64, dst []T) []T {
	if radius < 0 {
		return dst
	}
	reach := 1
	if radius > g.cellSize {
		reach = int(math.Ceil(radius / g.cellSize))
	}
	center := g.keyFor(p)
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			bucket := g.buckets[gridKey{center.X + dx, center.Y + dy}]
			for _, item := range bucket {
				if dist(p, g.at(item)) <= radius {
					dst = append(dst, item)
				}
			}
		}
	}
	return dst
}

func (g *Grid[T]) Len() int {
	n := 0
	for _, b := range g.buckets {
		n += len(b)
	}
	return n
}
