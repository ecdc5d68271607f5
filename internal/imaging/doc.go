// Package imaging provides the pixel-level operations behind plate
// recognition.
//
// It covers three groups of functionality:
//
//   - Preparing a region for OCR: grayscale conversion, cubic upscaling,
//     denoising blur, contrast-limited adaptive histogram equalization
//     (CLAHE), Otsu binarization and morphological closing. See Preprocessor.
//   - Geometry helpers used by the plate locator: Canny edge detection with
//     median-derived thresholds, edge dilation, rotation with border fill,
//     region padding, clamping and cropping.
//   - Reporting: plate background colour classification, candidate box
//     annotation and PNG/base64 encoding for tool output.
//
// All operations work with standard Go image.Image types and use a coordinate system
// where (0,0) is at the top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Functions that build new buffers (ToGray, Preprocessor.Process, Rotate,
// CropRegion) always return images whose bounds start at (0,0), whatever
// the origin of their input.
//
// # Ownership
//
// Every transform returns a fresh buffer and never modifies its input, so
// pipeline stages can hold on to intermediate images without aliasing.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Libraries
//
// Resampling, rotation, blurring and decoding use disintegration/imaging.
// Morphology uses anthonynsimon/bild. Colour classification uses
// lucasb-eyer/go-colorful. CLAHE and Otsu thresholding run in OpenCV
// through gocv; images cross into gocv.Mat only inside those calls, so the
// rest of the package stays on *image.Gray.
package imaging
