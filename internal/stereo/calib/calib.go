package calib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/pointcloud"
)

// Calibration file keys consumed by the projector.
const (
	KeyProjection  = "P2"
	KeyRectify     = "R0_rect"
	KeyVeloToCam   = "Tr_velo_to_cam"
	maxCalibLength = 64 * 1024
)

// ImagePoint is a pixel coordinate in the left rectified image together with
// the metric depth along the camera axis.
type ImagePoint struct {
	U, V, Depth float64
}

// Projector maps image points with depth into the vehicle frame. Implementations
// must be pure: the same input always yields the same output.
type Projector interface {
	// FocalLengthU is the horizontal focal length in pixels.
	FocalLengthU() float64
	// ProjectImageToVelo projects each (u, v, depth) triple to (x, y, z).
	// The output has the same length and order as the input.
	ProjectImageToVelo(pts []ImagePoint) pointcloud.Cloud
}

// CalibrationError reports a missing or malformed calibration source.
type CalibrationError struct {
	Source string
	Reason string
	Err    error
}

func (e *CalibrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calibration %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("calibration %s: %s", e.Source, e.Reason)
}

func (e *CalibrationError) Unwrap() error { return e.Err }

// Calibration holds the KITTI camera and velodyne calibration for one drive.
type Calibration struct {
	Source string

	P   *mat.Dense // 3x4 projection of the left colour camera
	R0  *mat.Dense // 3x3 rectifying rotation
	V2C *mat.Dense // 3x4 velodyne to reference camera
	C2V *mat.Dense // 3x4 reference camera to velodyne

	CU, CV float64 // principal point
	FU, FV float64 // focal lengths
	BX, BY float64 // baseline offsets relative to the reference camera

	r0Inv *mat.Dense
}

var _ Projector = (*Calibration)(nil)

// Load reads and parses a calibration file.
func Load(path string) (*Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &CalibrationError{Source: path, Reason: "cannot open", Err: err}
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a KITTI calibration text stream. Each line has the form
// "key: v0 v1 ...". Lines whose values are not all numeric are ignored, the
// same way the KITTI devkit treats them. source is used in error messages.
func Parse(r io.Reader, source string) (*Calibration, error) {
	values := make(map[string][]float64)

	sc := bufio.NewScanner(io.LimitReader(r, maxCalibLength))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		nums, ok := parseFloats(rest)
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = nums
	}
	if err := sc.Err(); err != nil {
		return nil, &CalibrationError{Source: source, Reason: "read failed", Err: err}
	}

	p, err := matrixFor(values, KeyProjection, 3, 4, source)
	if err != nil {
		return nil, err
	}
	r0, err := matrixFor(values, KeyRectify, 3, 3, source)
	if err != nil {
		return nil, err
	}
	v2c, err := matrixFor(values, KeyVeloToCam, 3, 4, source)
	if err != nil {
		return nil, err
	}
	return New(p, r0, v2c, source)
}

// New builds a Calibration from its matrices. p is 3x4, r0 is 3x3 and v2c is
// 3x4.
func New(p, r0, v2c *mat.Dense, source string) (*Calibration, error) {
	if r, c := p.Dims(); r != 3 || c != 4 {
		return nil, &CalibrationError{Source: source, Reason: fmt.Sprintf("%s must be 3x4, got %dx%d", KeyProjection, r, c)}
	}
	if r, c := r0.Dims(); r != 3 || c != 3 {
		return nil, &CalibrationError{Source: source, Reason: fmt.Sprintf("%s must be 3x3, got %dx%d", KeyRectify, r, c)}
	}
	if r, c := v2c.Dims(); r != 3 || c != 4 {
		return nil, &CalibrationError{Source: source, Reason: fmt.Sprintf("%s must be 3x4, got %dx%d", KeyVeloToCam, r, c)}
	}

	fu := p.At(0, 0)
	fv := p.At(1, 1)
	if fu == 0 || fv == 0 {
		return nil, &CalibrationError{Source: source, Reason: "focal length is zero"}
	}

	var r0Inv mat.Dense
	if err := r0Inv.Inverse(r0); err != nil {
		return nil, &CalibrationError{Source: source, Reason: "rectifying rotation is singular", Err: err}
	}

	return &Calibration{
		Source: source,
		P:      p,
		R0:     r0,
		V2C:    v2c,
		C2V:    InverseRigidTrans(v2c),
		CU:     p.At(0, 2),
		CV:     p.At(1, 2),
		FU:     fu,
		FV:     fv,
		BX:     p.At(0, 3) / -fu,
		BY:     p.At(1, 3) / -fv,
		r0Inv:  &r0Inv,
	}, nil
}

// FocalLengthU implements Projector.
func (c *Calibration) FocalLengthU() float64 { return c.FU }

// ProjectImageToRect lifts image points into the rectified camera frame.
// The result is an Nx3 matrix; it is nil for empty input.
func (c *Calibration) ProjectImageToRect(pts []ImagePoint) *mat.Dense {
	if len(pts) == 0 {
		return nil
	}
	out := mat.NewDense(len(pts), 3, nil)
	for i, p := range pts {
		out.Set(i, 0, (p.U-c.CU)*p.Depth/c.FU+c.BX)
		out.Set(i, 1, (p.V-c.CV)*p.Depth/c.FV+c.BY)
		out.Set(i, 2, p.Depth)
	}
	return out
}

// ProjectRectToRef undoes the rectifying rotation: ref = R0⁻¹ · rect.
func (c *Calibration) ProjectRectToRef(rect *mat.Dense) *mat.Dense {
	if rect == nil {
		return nil
	}
	var out mat.Dense
	out.Mul(rect, c.r0Inv.T())
	return &out
}

// ProjectRefToVelo applies the camera to velodyne rigid transform.
func (c *Calibration) ProjectRefToVelo(ref *mat.Dense) *mat.Dense {
	if ref == nil {
		return nil
	}
	var out mat.Dense
	out.Mul(ref, c.C2V.Slice(0, 3, 0, 3).T())
	n, _ := out.Dims()
	tx, ty, tz := c.C2V.At(0, 3), c.C2V.At(1, 3), c.C2V.At(2, 3)
	for i := 0; i < n; i++ {
		out.Set(i, 0, out.At(i, 0)+tx)
		out.Set(i, 1, out.At(i, 1)+ty)
		out.Set(i, 2, out.At(i, 2)+tz)
	}
	return &out
}

// ProjectImageToVelo implements Projector by chaining image → rect → ref → velo.
func (c *Calibration) ProjectImageToVelo(pts []ImagePoint) pointcloud.Cloud {
	velo := c.ProjectRefToVelo(c.ProjectRectToRef(c.ProjectImageToRect(pts)))
	if velo == nil {
		return pointcloud.Cloud{}
	}
	n, _ := velo.Dims()
	out := make(pointcloud.Cloud, n)
	for i := range out {
		out[i] = pointcloud.Point{X: velo.At(i, 0), Y: velo.At(i, 1), Z: velo.At(i, 2)}
	}
	return out
}

func parseFloats(s string) ([]float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, false
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func matrixFor(values map[string][]float64, key string, rows, cols int, source string) (*mat.Dense, error) {
	v, ok := values[key]
	if !ok {
		return nil, &CalibrationError{Source: source, Reason: "missing " + key}
	}
	if len(v) != rows*cols {
		return nil, &CalibrationError{Source: source, Reason: fmt.Sprintf("%s has %d values, want %d", key, len(v), rows*cols)}
	}
	return mat.NewDense(rows, cols, v), nil
}
