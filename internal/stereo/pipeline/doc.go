// Package pipeline wires the stereo stages into a per-frame estimator:
//
//	disparity -> depth.Reconstructor -> sparsify.Sparsifier
//	          -> bev.FilterLidar -> bev.MakeBEVMap -> raster
//
// Dependency rule: pipeline may import every internal/stereo package except
// batch and monitor, which sit above it.
package pipeline
