// Package pointcloud owns the vehicle-frame point types shared by every
// stage of the stereo pipeline, the numeric sanity check run before
// rasterization, and the KITTI .bin persistence format.
//
// Key types: Point, Cloud.
//
// Dependency rule: pointcloud imports nothing from the other stereo
// packages.
package pointcloud
