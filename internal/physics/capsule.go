package physics

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Capsule is a vertical-ish swept sphere: the segment Start..End expanded by
// Radius.
type Capsule struct {
	Start  mgl32.Vec3
	End    mgl32.Vec3
	Radius float32
}

// CapsuleResult is the outcome of one swept resolve.
type CapsuleResult struct {
	Collided     bool
	Displacement mgl32.Vec3
	Grounded     bool
	GroundNormal mgl32.Vec3
	HasGround    bool
}

const (
	// resolvePasses bounds the stacked-contact iteration.
	resolvePasses = 4
	// walkableCos is the minimum contact normal dot up for grounding
	// (about 45 degrees).
	walkableCos = 0.7
)

var upAxis = mgl32.Vec3{0, 1, 0}

// resolveCapsuleAgainst sweeps the capsule along velocity and pushes it out
// of every touching triangle delivered by query, up to resolvePasses times.
// query must invoke its callback with all triangles whose AABB intersects
// the given region.
func resolveCapsuleAgainst(capsule Capsule, velocity mgl32.Vec3, query func(min, max mgl32.Vec3, fn func(v0, v1, v2 mgl32.Vec3))) CapsuleResult {
	res := CapsuleResult{Displacement: velocity}

	start := capsule.Start.Add(velocity)
	end := capsule.End.Add(velocity)
	r := capsule.Radius

	// Swept region: both capsule ends before and after the move, inflated.
	qmin := vecMin(vecMin(capsule.Start, capsule.End), vecMin(start, end)).Sub(mgl32.Vec3{r, r, r})
	qmax := vecMax(vecMax(capsule.Start, capsule.End), vecMax(start, end)).Add(mgl32.Vec3{r, r, r})

	var candidates [][3]mgl32.Vec3
	query(qmin, qmax, func(v0, v1, v2 mgl32.Vec3) {
		candidates = append(candidates, [3]mgl32.Vec3{v0, v1, v2})
	})
	if len(candidates) == 0 {
		return res
	}

	bestGround := float32(-1)
	for pass := 0; pass < resolvePasses; pass++ {
		pushed := false
		for _, tri := range candidates {
			onTri, onSeg := closestTriangleSegment(tri[0], tri[1], tri[2], start, end)
			delta := onSeg.Sub(onTri)
			dist := delta.Len()
			if dist >= r || dist == 0 {
				continue
			}

			normal := delta.Mul(1 / dist)
			push := normal.Mul(r - dist)
			start = start.Add(push)
			end = end.Add(push)
			res.Collided = true
			pushed = true

			if d := normal.Dot(upAxis); d >= walkableCos && d > bestGround {
				bestGround = d
				res.GroundNormal = normal
				res.HasGround = true
			}
		}
		if !pushed {
			break
		}
	}

	res.Grounded = res.HasGround
	res.Displacement = start.Sub(capsule.Start)
	return res
}

// closestTriangleSegment returns the closest point pair between a triangle
// and a segment: a reference point on the segment (the plane crossing,
// clamped) picks the triangle point, then the segment point closest to it.
func closestTriangleSegment(a, b, c, segA, segB mgl32.Vec3) (onTri, onSeg mgl32.Vec3) {
	n := b.Sub(a).Cross(c.Sub(a))

	ref := segA
	seg := segB.Sub(segA)
	if d := n.Dot(seg); d*d > 1e-12 {
		t := n.Dot(a.Sub(segA)) / n.Dot(seg)
		ref = segA.Add(seg.Mul(clampf(t, 0, 1)))
	}

	onTri = closestPointOnTriangle(ref, a, b, c)
	onSeg = closestPointOnSegment(onTri, segA, segB)
	return onTri, onSeg
}

// closestPointOnTriangle projects p onto the triangle (Ericson, Real-Time
// Collision Detection 5.1.5).
func closestPointOnTriangle(p, a, b, c mgl32.Vec3) mgl32.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.Mul(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.Mul(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).Mul(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.Mul(v)).Add(ac.Mul(w))
}

func closestPointOnSegment(p, a, b mgl32.Vec3) mgl32.Vec3 {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom == 0 {
		return a
	}
	t := clampf(p.Sub(a).Dot(ab)/denom, 0, 1)
	return a.Add(ab.Mul(t))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
