package pointcloud

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFinite(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckFinite(nil, "empty"))
	assert.NoError(t, CheckFinite(Cloud{{X: 1, Y: -2, Z: 0.5}}, "ok"))

	cloud := Cloud{{X: 1}, {X: 2, Z: math.NaN()}, {Y: math.Inf(1)}}
	err := CheckFinite(cloud, "projection")
	require.Error(t, err)

	var nie *NumericInvariantError
	require.True(t, errors.As(err, &nie))
	assert.Equal(t, 1, nie.Index)
	assert.Equal(t, "projection", nie.Stage)
	assert.Contains(t, err.Error(), "after projection")
}

func TestCloud_Clone(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Cloud(nil).Clone())

	orig := Cloud{{X: 1, Y: 2, Z: 3}}
	cp := orig.Clone()
	cp[0].X = 99
	assert.Equal(t, 1.0, orig[0].X)
}

func TestKITTIBin_Layout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteKITTIBin(&buf, Cloud{{X: 54, Y: 10, Z: 20}, {X: 1.5, Y: -2.25, Z: 0}}))
	require.Equal(t, 2*16, buf.Len())

	vals := make([]float32, 8)
	require.NoError(t, binary.Read(bytes.NewReader(buf.Bytes()), binary.LittleEndian, vals))
	assert.Equal(t, []float32{54, 10, 20, 1, 1.5, -2.25, 0, 1}, vals)
}

func TestKITTIBin_ReadBack(t *testing.T) {
	t.Parallel()

	in := Cloud{{X: 3, Y: 4, Z: 5}, {X: 0.5, Y: -0.25, Z: 1.125}}
	var buf bytes.Buffer
	require.NoError(t, WriteKITTIBin(&buf, in))

	out, err := ReadKITTIBin(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("read back mismatch (-want +got):\n%s", diff)
	}
}

func TestKITTIBin_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteKITTIBin(&buf, nil))
	assert.Equal(t, 0, buf.Len())

	out, err := ReadKITTIBin(&buf)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadKITTIBin_Truncated(t *testing.T) {
	t.Parallel()

	_, err := ReadKITTIBin(bytes.NewReader(make([]byte, 17)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a multiple")
}
