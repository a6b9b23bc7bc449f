// Package fov computes an actor's visibility mask over the whole map.
//
// A cell is visible when the hex line traced from the eye to it crosses no
// sight-hiding cell. Lines are traced in integer cube coordinates scaled by
// 12·N with a constant nudge, so the sampled cells are the same whichever end
// the trace starts from. That makes the mask exactly symmetric and free of
// floating point.
package fov

import "github.com/plomlompom/plomrogue-sub000/internal/sim/grid"

const (
	Seen   byte = 'v'
	Unseen byte = ' '
)

// nudge breaks rounding ties; it sums to zero so the point stays on the
// q+r+s=0 plane, and it is smaller than half the 12-unit sample spacing.
var nudge = [3]int{1, 2, -3}

// Blank returns an all-unseen mask.
func Blank(length int) []byte {
	m := make([]byte, length*length)
	for i := range m {
		m[i] = Unseen
	}
	return m
}

// Build returns the mask for an eye at (y, x). radius <= 0 means unlimited.
func Build(cells []byte, length, y, x int, hides func(byte) bool, radius int) []byte {
	m := Blank(length)
	if !grid.InBounds(y, x, length) {
		return m
	}
	for ty := 0; ty < length; ty++ {
		for tx := 0; tx < length; tx++ {
			if LineOfSight(cells, length, y, x, ty, tx, hides, radius) {
				m[ty*length+tx] = Seen
			}
		}
	}
	return m
}

// LineOfSight reports whether (y2, x2) is visible from (y1, x1). The result
// does not depend on argument order.
func LineOfSight(cells []byte, length, y1, x1, y2, x2 int, hides func(byte) bool, radius int) bool {
	n := grid.Distance(y1, x1, y2, x2)
	if radius > 0 && n > radius {
		return false
	}
	if n <= 1 {
		return true
	}
	q1, r1 := grid.ToCube(y1, x1)
	q2, r2 := grid.ToCube(y2, x2)
	a := [3]int{q1, r1, -q1 - r1}
	b := [3]int{q2, r2, -q2 - r2}
	den := 12 * n
	for i := 1; i < n; i++ {
		var p [3]int
		for k := 0; k < 3; k++ {
			p[k] = 12*(a[k]*(n-i)+b[k]*i) + nudge[k]
		}
		q, r := cubeRound(p, den)
		cy, cx := grid.FromCube(q, r)
		if (cy == y1 && cx == x1) || (cy == y2 && cx == x2) {
			continue
		}
		if !grid.InBounds(cy, cx, length) {
			continue
		}
		if hides(cells[cy*length+cx]) {
			return false
		}
	}
	return true
}

// cubeRound rounds the scaled cube point p/den to the nearest hex.
func cubeRound(p [3]int, den int) (q, r int) {
	var rd [3]int
	var diff [3]int
	for k := 0; k < 3; k++ {
		rd[k] = roundDiv(p[k], den)
		diff[k] = abs(rd[k]*den - p[k])
	}
	switch {
	case diff[0] > diff[1] && diff[0] > diff[2]:
		rd[0] = -rd[1] - rd[2]
	case diff[1] > diff[2]:
		rd[1] = -rd[0] - rd[2]
	}
	return rd[0], rd[1]
}

// roundDiv rounds num/den to the nearest integer; den > 0.
func roundDiv(num, den int) int {
	return floorDiv(2*num+den, 2*den)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
