// Package dispio reads disparity and depth maps produced by a stereo network
// or the KITTI devkit.
//
// Supported inputs:
//
//	.npy        float32/float64/uint16/uint8 arrays of shape (H, W) or (1, H, W),
//	            values in pixels (disparity) or metres (depth)
//	.png        16-bit grayscale, value*256 as in the KITTI devkit
//	.tif/.tiff  same encoding as .png
package dispio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"golang.org/x/image/tiff"

	"github.com/ruhyadi/Stereo-3D-Detection/internal/stereo/depth"
)

// KITTIScale is the fixed-point scale of 16-bit KITTI disparity and depth
// images.
const KITTIScale = 256

// ErrUnsupportedFormat is returned for file extensions that are not maps.
var ErrUnsupportedFormat = errors.New("dispio: unsupported map format")

// Extensions lists the file extensions accepted by Decode, lower case.
var Extensions = []string{".npy", ".png", ".tif", ".tiff"}

// IsMapFile reports whether name has a map extension.
func IsMapFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadMap reads the map at path.
func LoadMap(path string) (*depth.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map: %w", err)
	}
	defer f.Close()
	return Decode(f, path)
}

// Decode reads a map from r, choosing the decoder from the extension of
// name. Image formats are rescaled by 1/KITTIScale.
func Decode(r io.Reader, name string) (*depth.Map, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".npy":
		return DecodeNPY(r)
	case ".png":
		img, err := png.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode png %s: %w", name, err)
		}
		return FromImage(img, 1.0/KITTIScale), nil
	case ".tif", ".tiff":
		img, err := tiff.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decode tiff %s: %w", name, err)
		}
		return FromImage(img, 1.0/KITTIScale), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// DecodeNPY reads a 2-D numpy array, or a 3-D one with a leading axis of 1.
func DecodeNPY(r io.Reader) (*depth.Map, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("dispio: fortran-ordered arrays are not supported")
	}

	shape := descr.Shape
	if len(shape) == 3 && shape[0] == 1 {
		shape = shape[1:]
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("dispio: expected a 2-D array, got shape %v", descr.Shape)
	}
	rows, cols := shape[0], shape[1]

	var data []float32
	switch descr.Type {
	case "<f4":
		if err := nr.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
	case "<f8":
		var raw []float64
		if err := nr.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		data = make([]float32, len(raw))
		for i, v := range raw {
			data[i] = float32(v)
		}
	case "<u2":
		var raw []uint16
		if err := nr.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		data = make([]float32, len(raw))
		for i, v := range raw {
			data[i] = float32(v)
		}
	case "|u1":
		var raw []uint8
		if err := nr.Read(&raw); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		data = make([]float32, len(raw))
		for i, v := range raw {
			data[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("dispio: unsupported npy dtype %q", descr.Type)
	}

	return depth.NewMapFromData(rows, cols, data)
}

// FromImage converts a grayscale image to a map, multiplying each sample by
// scale. Colour images are converted to 16-bit luminance first.
func FromImage(img image.Image, scale float32) *depth.Map {
	b := img.Bounds()
	m := depth.NewMap(b.Dy(), b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint16
			switch im := img.(type) {
			case *image.Gray16:
				v = im.Gray16At(x, y).Y
			case *image.Gray:
				v = uint16(im.GrayAt(x, y).Y)
			default:
				v = color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
			}
			m.Set(y-b.Min.Y, x-b.Min.X, float32(v)*scale)
		}
	}
	return m
}

// EncodePNG writes m as a 16-bit KITTI image. Values are clamped to the
// representable range [0, 65535/KITTIScale].
func EncodePNG(w io.Writer, m *depth.Map) error {
	img := image.NewGray16(image.Rect(0, 0, m.Cols, m.Rows))
	for row := 0; row < m.Rows; row++ {
		for col := 0; col < m.Cols; col++ {
			img.SetGray16(col, row, color.Gray16{Y: toFixed(m.At(row, col))})
		}
	}
	return png.Encode(w, img)
}

// QuantizeDisparity rounds every disparity down to the 1/KITTIScale grid of
// a 16-bit KITTI image. Negative values become 0 and values beyond the
// 16-bit range saturate. m is not modified.
func QuantizeDisparity(m *depth.Map) *depth.Map {
	out := depth.NewMap(m.Rows, m.Cols)
	for i, v := range m.Data {
		out.Data[i] = float32(toFixed(v)) / KITTIScale
	}
	return out
}

func toFixed(v float32) uint16 {
	f := float64(v) * KITTIScale
	switch {
	case f != f || f <= 0:
		return 0
	case f >= 65535:
		return 65535
	default:
		return uint16(f)
	}
}
