package depth

import (
	"fmt"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/calib"
	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

// DefaultBaseline is the KITTI stereo rig baseline in metres.
const DefaultBaseline = 0.54

// ShapeMismatchError reports a map whose shape differs from the camera
// resolution the reconstructor was configured for.
type ShapeMismatchError struct {
	WantRows, WantCols int
	GotRows, GotCols   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("map shape %dx%d does not match camera resolution %dx%d",
		e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// Reconstructor turns disparity or depth maps into vehicle-frame clouds.
type Reconstructor struct {
	// Baseline is the distance between the stereo camera centres in metres.
	Baseline float64

	// ExpectedRows and ExpectedCols, when both non-zero, are the camera
	// resolution every input map must match.
	ExpectedRows int
	ExpectedCols int
}

// NewReconstructor returns a Reconstructor with no shape check.
func NewReconstructor(baseline float64) *Reconstructor {
	return &Reconstructor{Baseline: baseline}
}

// CheckShape returns a *ShapeMismatchError when m does not match the expected
// camera resolution. Empty maps and unconfigured reconstructors always pass.
func (r *Reconstructor) CheckShape(m *Map) error {
	if r.ExpectedRows == 0 || r.ExpectedCols == 0 || m.Empty() {
		return nil
	}
	if m.Rows != r.ExpectedRows || m.Cols != r.ExpectedCols {
		return &ShapeMismatchError{
			WantRows: r.ExpectedRows, WantCols: r.ExpectedCols,
			GotRows: m.Rows, GotCols: m.Cols,
		}
	}
	return nil
}

// ProjectDispToPoints converts a disparity map to a point cloud.
//
// Negative disparities are treated as zero and only pixels with disparity
// strictly above zero are projected, using depth = f_u * baseline / d.
// Pixels are visited in row-major order, so the output order is stable.
// Points behind the sensor (x < 0) or at or above maxHeight are dropped.
// disp is not modified.
func (r *Reconstructor) ProjectDispToPoints(proj calib.Projector, disp *Map, maxHeight float64) (pointcloud.Cloud, error) {
	if err := r.CheckShape(disp); err != nil {
		return nil, err
	}
	if disp.Empty() {
		return pointcloud.Cloud{}, nil
	}
	disp = disp.Clamped()

	scale := proj.FocalLengthU() * r.Baseline
	pts := make([]calib.ImagePoint, 0, disp.ValidCount())
	for row := 0; row < disp.Rows; row++ {
		base := row * disp.Cols
		for col := 0; col < disp.Cols; col++ {
			d := float64(disp.Data[base+col])
			if d <= 0 {
				continue
			}
			pts = append(pts, calib.ImagePoint{U: float64(col), V: float64(row), Depth: scale / d})
		}
	}
	if len(pts) == 0 {
		return pointcloud.Cloud{}, nil
	}

	return frontAndBelow(proj.ProjectImageToVelo(pts), maxHeight), nil
}

// ProjectDepthToPoints projects every pixel of a metric depth map. There is
// no validity mask; only the front and height filters apply.
func (r *Reconstructor) ProjectDepthToPoints(proj calib.Projector, depthMap *Map, maxHeight float64) (pointcloud.Cloud, error) {
	if err := r.CheckShape(depthMap); err != nil {
		return nil, err
	}
	if depthMap.Empty() {
		return pointcloud.Cloud{}, nil
	}

	pts := make([]calib.ImagePoint, 0, len(depthMap.Data))
	for row := 0; row < depthMap.Rows; row++ {
		base := row * depthMap.Cols
		for col := 0; col < depthMap.Cols; col++ {
			pts = append(pts, calib.ImagePoint{U: float64(col), V: float64(row), Depth: float64(depthMap.Data[base+col])})
		}
	}

	return frontAndBelow(proj.ProjectImageToVelo(pts), maxHeight), nil
}

// ProjectDispToPoints is ProjectDispToPoints with the KITTI baseline.
func ProjectDispToPoints(proj calib.Projector, disp *Map, maxHeight float64) (pointcloud.Cloud, error) {
	return NewReconstructor(DefaultBaseline).ProjectDispToPoints(proj, disp, maxHeight)
}

// ProjectDepthToPoints is ProjectDepthToPoints without a shape check.
func ProjectDepthToPoints(proj calib.Projector, depthMap *Map, maxHeight float64) (pointcloud.Cloud, error) {
	return NewReconstructor(DefaultBaseline).ProjectDepthToPoints(proj, depthMap, maxHeight)
}

// frontAndBelow keeps points with x >= 0 and z < maxHeight, compacting in place.
func frontAndBelow(cloud pointcloud.Cloud, maxHeight float64) pointcloud.Cloud {
	n := 0
	for _, p := range cloud {
		if p.X >= 0 && p.Z < maxHeight {
			cloud[n] = p
			n++
		}
	}
	return cloud[:n]
}
