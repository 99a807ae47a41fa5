// Package sparsify reduces a dense pseudo-LiDAR cloud to the angular
// sampling pattern of a multi-beam LiDAR.
//
// Dependency rule: sparsify may import pointcloud and config only.
package sparsify
