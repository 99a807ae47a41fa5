// Package calib parses KITTI camera calibration files and projects image
// coordinates with depth into the vehicle (velodyne) frame.
//
// The pipeline only depends on the Projector interface; Calibration is the
// KITTI implementation and Cache keeps the most recently used one so that
// consecutive frames sharing a calibration file skip re-parsing.
package calib
