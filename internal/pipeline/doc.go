// Package pipeline turns a decoded photo into a validated plate reading.
//
// A Detector runs an ordered list of strategies and stops at the first one
// that yields a valid plate:
//
//   - learned: boxes from a LearnedDetector, trying lower thresholds until
//     one box appears. Confidence combines detector and OCR scores.
//   - locator: geometric candidates from detection.Locator, largest first.
//   - tiles: an overlapping sliding-window scan.
//   - whole: the entire image, once.
//
// Every region goes through a RegionReader, which preprocesses it, runs
// each OCR profile, and keeps the best token that survives normalization,
// correction and validation. Rotated retries with the first profile follow
// when no profile produced a plate.
//
// Failures inside a strategy (a recognizer error, a detector timeout, a
// panic) are recorded on the Result's Attempts and logged. They never stop
// the chain and never escape Detect. A plate that is not found is a normal
// Result with Found false and Confidence 0.
//
// Locating works on a copy downscaled to Config.MaxImageWidth; crops are
// taken from the original image and every Region is reported in its
// coordinates.
package pipeline
