package world

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Frustum is six inward-facing planes (a,b,c,d with ax+by+cz+d >= 0 inside)
// extracted from a view-projection matrix.
type Frustum struct {
	planes [6]mgl32.Vec4
}

// ExtractFrustum pulls the six clip planes out of a column-major
// view-projection matrix (Gribb/Hartmann).
func ExtractFrustum(vp mgl32.Mat4) Frustum {
	row := func(i int) mgl32.Vec4 {
		return mgl32.Vec4{vp.At(i, 0), vp.At(i, 1), vp.At(i, 2), vp.At(i, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var f Frustum
	f.planes[0] = r3.Add(r0) // left
	f.planes[1] = r3.Sub(r0) // right
	f.planes[2] = r3.Add(r1) // bottom
	f.planes[3] = r3.Sub(r1) // top
	f.planes[4] = r3.Add(r2) // near
	f.planes[5] = r3.Sub(r2) // far

	for i := range f.planes {
		n := f.planes[i].Vec3().Len()
		if n > 0 {
			f.planes[i] = f.planes[i].Mul(1 / n)
		}
	}
	return f
}

// IntersectsAABB reports whether the box touches the frustum. Conservative:
// boxes straddling a corner can pass.
func (f *Frustum) IntersectsAABB(min, max mgl32.Vec3) bool {
	for _, p := range f.planes {
		// positive vertex for this plane
		v := mgl32.Vec3{min.X(), min.Y(), min.Z()}
		if p.X() >= 0 {
			v[0] = max.X()
		}
		if p.Y() >= 0 {
			v[1] = max.Y()
		}
		if p.Z() >= 0 {
			v[2] = max.Z()
		}
		if p.Vec3().Dot(v)+p.W() < 0 {
			return false
		}
	}
	return true
}
