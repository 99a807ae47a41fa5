package calib

import "gonum.org/v1/gonum/mat"

// InverseRigidTrans inverts a 3x4 rigid body transform [R|t], returning
// [Rᵀ | -Rᵀt].
func InverseRigidTrans(tr *mat.Dense) *mat.Dense {
	rot := tr.Slice(0, 3, 0, 3)

	inv := mat.NewDense(3, 4, nil)
	inv.Slice(0, 3, 0, 3).(*mat.Dense).Copy(rot.T())

	var t mat.VecDense
	t.MulVec(rot.T(), tr.ColView(3))
	for i := 0; i < 3; i++ {
		inv.Set(i, 3, -t.AtVec(i))
	}
	return inv
}
