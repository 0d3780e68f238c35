package model

import "github.com/go-gl/mathgl/mgl32"

// BillboardMatrix returns a model matrix that keeps model's translation but
// takes its orientation from the inverse of view's rotation, so the mesh
// faces the camera. view must be orthonormal.
//
// Upright (yaw-only) billboards are not supported and return
// ErrUprightBillboard.
func BillboardMatrix(view, model mgl32.Mat4, upright bool) (mgl32.Mat4, error) {
	if upright {
		return model, &Error{Kind: KindConfiguration, Op: "billboard", Err: ErrUprightBillboard}
	}
	b := view.Transpose()
	b[3], b[7], b[11] = 0, 0, 0
	b[12], b[13], b[14] = model[12], model[13], model[14]
	return b, nil
}
