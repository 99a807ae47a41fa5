package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
// The Get* accessors fall back to the same values when a field is omitted.
const DefaultConfigPath = "config/pipeline.defaults.json"

// PipelineConfig represents the root configuration for the stereo to BEV
// pipeline. Every field is optional; omitted fields resolve to the KITTI
// defaults through the Get* accessors, so partial configs are safe.
type PipelineConfig struct {
	// Depth reconstruction
	Baseline   *float64 `json:"baseline,omitempty"` // stereo baseline in metres
	MaxHigh    *float64 `json:"max_high,omitempty"` // vehicle-frame z ceiling for reconstructed points
	CameraRows *int     `json:"camera_rows,omitempty"`
	CameraCols *int     `json:"camera_cols,omitempty"`

	// BEV raster
	BEVHeight         *int     `json:"bev_height,omitempty"`
	BEVWidth          *int     `json:"bev_width,omitempty"`
	BoundaryMinX      *float64 `json:"boundary_min_x,omitempty"`
	BoundaryMaxX      *float64 `json:"boundary_max_x,omitempty"`
	BoundaryMinY      *float64 `json:"boundary_min_y,omitempty"`
	BoundaryMaxY      *float64 `json:"boundary_max_y,omitempty"`
	BoundaryMinZ      *float64 `json:"boundary_min_z,omitempty"`
	BoundaryMaxZ      *float64 `json:"boundary_max_z,omitempty"`
	DensitySaturation *float64 `json:"density_saturation,omitempty"` // point count at which density reaches 1.0

	// Angular sparsification
	SparsifyEnabled  *bool    `json:"sparsify_enabled,omitempty"`
	SparsifyHeight   *int     `json:"sparsify_height,omitempty"`
	SparsifyWidth    *int     `json:"sparsify_width,omitempty"`
	SparsifySlice    *int     `json:"sparsify_slice,omitempty"`
	SparsifyCropMinX *float64 `json:"sparsify_crop_min_x,omitempty"`
	SparsifyCropMaxX *float64 `json:"sparsify_crop_max_x,omitempty"`
	SparsifyCropMinY *float64 `json:"sparsify_crop_min_y,omitempty"`
	SparsifyCropMaxY *float64 `json:"sparsify_crop_max_y,omitempty"`
	SparsifyCropMinZ *float64 `json:"sparsify_crop_min_z,omitempty"`
	SparsifyCropMaxZ *float64 `json:"sparsify_crop_max_z,omitempty"`

	// Batch generation
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields set to nil.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a PipelineConfig with every field populated
// from the built-in defaults. Useful when a config must be serialised in full.
func DefaultPipelineConfig() *PipelineConfig {
	c := EmptyPipelineConfig()
	return &PipelineConfig{
		Baseline:          ptrFloat64(c.GetBaseline()),
		MaxHigh:           ptrFloat64(c.GetMaxHigh()),
		CameraRows:        ptrInt(c.GetCameraRows()),
		CameraCols:        ptrInt(c.GetCameraCols()),
		BEVHeight:         ptrInt(c.GetBEVHeight()),
		BEVWidth:          ptrInt(c.GetBEVWidth()),
		BoundaryMinX:      ptrFloat64(c.GetBoundaryMinX()),
		BoundaryMaxX:      ptrFloat64(c.GetBoundaryMaxX()),
		BoundaryMinY:      ptrFloat64(c.GetBoundaryMinY()),
		BoundaryMaxY:      ptrFloat64(c.GetBoundaryMaxY()),
		BoundaryMinZ:      ptrFloat64(c.GetBoundaryMinZ()),
		BoundaryMaxZ:      ptrFloat64(c.GetBoundaryMaxZ()),
		DensitySaturation: ptrFloat64(c.GetDensitySaturation()),
		SparsifyEnabled:   ptrBool(c.GetSparsifyEnabled()),
		SparsifyHeight:    ptrInt(c.GetSparsifyHeight()),
		SparsifyWidth:     ptrInt(c.GetSparsifyWidth()),
		SparsifySlice:     ptrInt(c.GetSparsifySlice()),
		SparsifyCropMinX:  ptrFloat64(c.GetSparsifyCropMinX()),
		SparsifyCropMaxX:  ptrFloat64(c.GetSparsifyCropMaxX()),
		SparsifyCropMinY:  ptrFloat64(c.GetSparsifyCropMinY()),
		SparsifyCropMaxY:  ptrFloat64(c.GetSparsifyCropMaxY()),
		SparsifyCropMinZ:  ptrFloat64(c.GetSparsifyCropMinZ()),
		SparsifyCropMaxZ:  ptrFloat64(c.GetSparsifyCropMaxZ()),
		Workers:           ptrInt(c.GetWorkers()),
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
// Fields omitted from the JSON file retain their default values.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/stereo/bev/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// JSON returns the config serialised as compact JSON, for recording
// alongside generated runs.
func (c *PipelineConfig) JSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.Baseline != nil && *c.Baseline <= 0 {
		return fmt.Errorf("baseline must be positive, got %f", *c.Baseline)
	}
	if c.CameraRows != nil && *c.CameraRows < 0 {
		return fmt.Errorf("camera_rows must be non-negative, got %d", *c.CameraRows)
	}
	if c.CameraCols != nil && *c.CameraCols < 0 {
		return fmt.Errorf("camera_cols must be non-negative, got %d", *c.CameraCols)
	}
	if c.BEVHeight != nil && *c.BEVHeight <= 0 {
		return fmt.Errorf("bev_height must be positive, got %d", *c.BEVHeight)
	}
	if c.BEVWidth != nil && *c.BEVWidth <= 0 {
		return fmt.Errorf("bev_width must be positive, got %d", *c.BEVWidth)
	}
	if c.GetBoundaryMinX() >= c.GetBoundaryMaxX() {
		return fmt.Errorf("boundary_min_x (%f) must be below boundary_max_x (%f)", c.GetBoundaryMinX(), c.GetBoundaryMaxX())
	}
	if c.GetBoundaryMinY() >= c.GetBoundaryMaxY() {
		return fmt.Errorf("boundary_min_y (%f) must be below boundary_max_y (%f)", c.GetBoundaryMinY(), c.GetBoundaryMaxY())
	}
	if c.GetBoundaryMinZ() >= c.GetBoundaryMaxZ() {
		return fmt.Errorf("boundary_min_z (%f) must be below boundary_max_z (%f)", c.GetBoundaryMinZ(), c.GetBoundaryMaxZ())
	}
	if c.DensitySaturation != nil && *c.DensitySaturation <= 1 {
		return fmt.Errorf("density_saturation must be greater than 1, got %f", *c.DensitySaturation)
	}
	if c.SparsifyHeight != nil && *c.SparsifyHeight <= 0 {
		return fmt.Errorf("sparsify_height must be positive, got %d", *c.SparsifyHeight)
	}
	if c.SparsifyWidth != nil && *c.SparsifyWidth <= 0 {
		return fmt.Errorf("sparsify_width must be positive, got %d", *c.SparsifyWidth)
	}
	if c.SparsifySlice != nil && *c.SparsifySlice < 1 {
		return fmt.Errorf("sparsify_slice must be at least 1, got %d", *c.SparsifySlice)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetBaseline returns the baseline value or the KITTI default.
func (c *PipelineConfig) GetBaseline() float64 {
	if c.Baseline == nil {
		return 0.54
	}
	return *c.Baseline
}

// GetMaxHigh returns the max_high value or the default.
func (c *PipelineConfig) GetMaxHigh() float64 {
	if c.MaxHigh == nil {
		return 1.0
	}
	return *c.MaxHigh
}

// GetCameraRows returns the expected disparity rows; 0 disables the check.
func (c *PipelineConfig) GetCameraRows() int {
	if c.CameraRows == nil {
		return 0
	}
	return *c.CameraRows
}

// GetCameraCols returns the expected disparity columns; 0 disables the check.
func (c *PipelineConfig) GetCameraCols() int {
	if c.CameraCols == nil {
		return 0
	}
	return *c.CameraCols
}

func (c *PipelineConfig) GetBEVHeight() int {
	if c.BEVHeight == nil {
		return 608
	}
	return *c.BEVHeight
}

func (c *PipelineConfig) GetBEVWidth() int {
	if c.BEVWidth == nil {
		return 608
	}
	return *c.BEVWidth
}

func (c *PipelineConfig) GetBoundaryMinX() float64 {
	if c.BoundaryMinX == nil {
		return 0
	}
	return *c.BoundaryMinX
}

func (c *PipelineConfig) GetBoundaryMaxX() float64 {
	if c.BoundaryMaxX == nil {
		return 50
	}
	return *c.BoundaryMaxX
}

func (c *PipelineConfig) GetBoundaryMinY() float64 {
	if c.BoundaryMinY == nil {
		return -25
	}
	return *c.BoundaryMinY
}

func (c *PipelineConfig) GetBoundaryMaxY() float64 {
	if c.BoundaryMaxY == nil {
		return 25
	}
	return *c.BoundaryMaxY
}

func (c *PipelineConfig) GetBoundaryMinZ() float64 {
	if c.BoundaryMinZ == nil {
		return -2.73
	}
	return *c.BoundaryMinZ
}

func (c *PipelineConfig) GetBoundaryMaxZ() float64 {
	if c.BoundaryMaxZ == nil {
		return 1.27
	}
	return *c.BoundaryMaxZ
}

// GetDensitySaturation returns the density_saturation value or the default (64).
func (c *PipelineConfig) GetDensitySaturation() float64 {
	if c.DensitySaturation == nil {
		return 64
	}
	return *c.DensitySaturation
}

// GetSparsifyEnabled returns the sparsify_enabled value or the default.
func (c *PipelineConfig) GetSparsifyEnabled() bool {
	if c.SparsifyEnabled == nil {
		return true
	}
	return *c.SparsifyEnabled
}

func (c *PipelineConfig) GetSparsifyHeight() int {
	if c.SparsifyHeight == nil {
		return 64
	}
	return *c.SparsifyHeight
}

func (c *PipelineConfig) GetSparsifyWidth() int {
	if c.SparsifyWidth == nil {
		return 512
	}
	return *c.SparsifyWidth
}

func (c *PipelineConfig) GetSparsifySlice() int {
	if c.SparsifySlice == nil {
		return 1
	}
	return *c.SparsifySlice
}

func (c *PipelineConfig) GetSparsifyCropMinX() float64 {
	if c.SparsifyCropMinX == nil {
		return 0
	}
	return *c.SparsifyCropMinX
}

func (c *PipelineConfig) GetSparsifyCropMaxX() float64 {
	if c.SparsifyCropMaxX == nil {
		return 120
	}
	return *c.SparsifyCropMaxX
}

func (c *PipelineConfig) GetSparsifyCropMinY() float64 {
	if c.SparsifyCropMinY == nil {
		return -50
	}
	return *c.SparsifyCropMinY
}

func (c *PipelineConfig) GetSparsifyCropMaxY() float64 {
	if c.SparsifyCropMaxY == nil {
		return 50
	}
	return *c.SparsifyCropMaxY
}

func (c *PipelineConfig) GetSparsifyCropMinZ() float64 {
	if c.SparsifyCropMinZ == nil {
		return -2.5
	}
	return *c.SparsifyCropMinZ
}

func (c *PipelineConfig) GetSparsifyCropMaxZ() float64 {
	if c.SparsifyCropMaxZ == nil {
		return 1.5
	}
	return *c.SparsifyCropMaxZ
}

// GetWorkers returns the batch worker count or the default (1).
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}
