// Package batch converts a directory of disparity (or depth) maps into
// KITTI-style .bin point clouds, one per map, using the calibration file of
// the same base name.
//
// Dependency rule: batch sits on top of the stereo packages and may import
// db, fsutil and security. Nothing in internal/stereo imports batch.
package batch
