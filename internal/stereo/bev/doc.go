// Package bev turns a point cloud into a bird's-eye-view raster.
//
// Two stages live here. FilterLidar crops a cloud to a region of interest
// and shifts it so the region floor sits at z = 0. MakeBEVMap quantises the
// cropped cloud onto a Height x Width grid with three channels:
//
//	0 intensity  1.0 for every occupied cell
//	1 height     z of the tallest point in the cell / MaxHeight
//	2 density    min(1, log(n+1) / log(DensitySaturation))
//
// Grid rows follow the forward (x) axis, columns the lateral (y) axis with
// y = 0 at Width/2.
//
// Dependency rule: bev may import pointcloud and config only.
package bev
