package common

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (glTF convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements, may alias a or b)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// ComposeTRS builds the column-major matrix T * R * S, the glTF node transform order.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - t: translation
//   - r: unit rotation quaternion (x, y, z, w)
//   - s: scale along each axis
func ComposeTRS(out []float32, t [3]float32, r [4]float32, s [3]float32) {
	x, y, z, w := r[0], r[1], r[2], r[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	out[0] = (1 - 2*(yy+zz)) * s[0]
	out[1] = 2 * (xy + wz) * s[0]
	out[2] = 2 * (xz - wy) * s[0]
	out[3] = 0

	out[4] = 2 * (xy - wz) * s[1]
	out[5] = (1 - 2*(xx+zz)) * s[1]
	out[6] = 2 * (yz + wx) * s[1]
	out[7] = 0

	out[8] = 2 * (xz + wy) * s[2]
	out[9] = 2 * (yz - wx) * s[2]
	out[10] = (1 - 2*(xx+yy)) * s[2]
	out[11] = 0

	out[12] = t[0]
	out[13] = t[1]
	out[14] = t[2]
	out[15] = 1
}

// TransformPoint applies a column-major 4x4 affine matrix to a point.
//
// Parameters:
//   - m: the matrix (16 elements)
//   - p: the point
//
// Returns:
//   - [3]float32: the transformed point
func TransformPoint(m []float32, p [3]float32) [3]float32 {
	return [3]float32{
		m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12],
		m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13],
		m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14],
	}
}
