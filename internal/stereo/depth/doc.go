// Package depth reconstructs vehicle-frame point clouds from stereo
// disparity or depth maps ("pseudo-LiDAR").
//
// Key types: Map, Reconstructor.
//
// Dependency rule: depth may depend on calib and pointcloud, never on
// bev, sparsify or pipeline.
package depth
