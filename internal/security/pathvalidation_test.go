package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmp := t.TempDir()
	saveDir := filepath.Join(tmp, "velodyne")
	outside := filepath.Join(tmp, "elsewhere")
	require.NoError(t, os.MkdirAll(saveDir, 0755))
	require.NoError(t, os.MkdirAll(outside, 0755))
	require.NoError(t, os.Symlink(outside, filepath.Join(saveDir, "link")))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"plain file", filepath.Join(saveDir, "000000.bin"), false},
		{"nested new file", filepath.Join(saveDir, "a", "b", "000000.bin"), false},
		{"dot dot", filepath.Join(saveDir, "..", "000000.bin"), true},
		{"absolute elsewhere", filepath.Join(outside, "000000.bin"), true},
		{"through symlink", filepath.Join(saveDir, "link", "000000.bin"), true},
		{"dir itself", saveDir, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, saveDir)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrPathTraversal))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not", "yet", "created")
	assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(dir, "x.bin"), dir))
	assert.Error(t, ValidatePathWithinDirectory(filepath.Join(dir, "..", "x.bin"), dir))
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()

	got, err := OutputPath(dir, "000123", ".bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "000123.bin"), got)

	got, err = OutputPath(dir, "../../etc/passwd", ".bin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "etc_passwd.bin"), got)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"000000":        "000000",
		"frame 01.png":  "frame_01.png",
		"a//b\\\\c":     "a_b_c",
		"...":           "unknown",
		"":              "unknown",
		"_x_":           "x",
		"kitti-2015_v1": "kitti-2015_v1",
		"über/ﬁle":      "ber_le",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "SanitizeFilename(%q)", in)
	}

	long := SanitizeFilename(strings.Repeat("a", 500))
	assert.Len(t, long, 128)
}
