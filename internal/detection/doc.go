// Package detection finds where a licence plate might be in an image.
//
// Two sources of candidate regions are provided:
//
//   - Locator: a geometric heuristic. It detects edges, dilates them so the
//     characters of a plate merge into one blob, and keeps the bounding
//     boxes of connected components whose shape and size are plausible for
//     a plate. Candidates come back largest first.
//   - LearnedDetector: an interface for externally trained object detectors
//     that return Boxes with their own localization confidence.
//
// Tiles generates the overlapping sliding-window scan used when neither
// source yields a readable plate.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// Regions are reported in the coordinate space of the image passed in.
//
// # Performance Considerations
//
// Edge detection and component labelling iterate over all pixels. Callers
// should downscale very large photos first (see imaging.FitWidth).
package detection
