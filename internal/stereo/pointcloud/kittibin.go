package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// kittiStride is the number of float32 values per persisted point:
// x, y, z and an intensity channel that is always written as 1.0.
const kittiStride = 4

// KITTIIntensity is the placeholder reflectance written for every point.
// Stereo reconstruction has no reflectance so presence is all we can record.
const KITTIIntensity float32 = 1.0

// WriteKITTIBin writes the cloud in the KITTI velodyne layout: flat
// little-endian float32, four values per point, no header.
func WriteKITTIBin(w io.Writer, c Cloud) error {
	bw := bufio.NewWriter(w)
	var buf [kittiStride * 4]byte
	for _, p := range c {
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(float32(p.Z)))
		binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(KITTIIntensity))
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("write point: %w", err)
		}
	}
	return bw.Flush()
}

// ReadKITTIBin reads a KITTI velodyne file. The intensity channel is
// discarded. A trailing partial record is an error.
func ReadKITTIBin(r io.Reader) (Cloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read point file: %w", err)
	}
	const recordSize = kittiStride * 4
	if len(data)%recordSize != 0 {
		return nil, fmt.Errorf("point file size %d is not a multiple of %d bytes", len(data), recordSize)
	}

	n := len(data) / recordSize
	out := make(Cloud, n)
	for i := 0; i < n; i++ {
		rec := data[i*recordSize : (i+1)*recordSize]
		out[i] = Point{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[0:4]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[4:8]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12]))),
		}
	}
	return out, nil
}
