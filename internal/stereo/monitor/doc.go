// Package monitor serves a small HTTP view of the BEV pipeline: the stats
// of the most recently published raster, the run catalogue and a debug
// chart of one raster channel.
//
// Dependency rule: monitor may import pipeline, bev, db and the ambient
// internal packages (httputil, monitoring, timeutil). The pipeline does not
// know about monitor; commands publish into it.
package monitor
