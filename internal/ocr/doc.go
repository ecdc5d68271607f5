// Package ocr defines the boundary between the plate pipeline and the
// optical character recognition engines it drives.
//
// The pipeline never talks to an engine library directly. It hands a
// preprocessed image and a Profile to a Recognizer and receives a list of
// Tokens: recognized text, where it sits in the image, and the engine's
// native confidence. Two engines ship with the module:
//
//   - ocr/tesseract: local Tesseract through gosseract/v2
//   - ocr/rekognition: AWS Rekognition DetectText
//
// # Profiles
//
// A Profile bundles the knobs that change how an engine reads a region:
// page segmentation (single word, single line, sparse text, block), engine
// mode, and a character whitelist. No single profile is reliably best
// across image qualities, so the pipeline tries DefaultProfiles in order
// and keeps the best valid reading.
//
// # Confidence
//
// Engines disagree on confidence scales. Tesseract and Rekognition report
// 0-100, other engines 0-1, and Tesseract uses -1 for "no score". Each
// Token records the Scale it was reported in; Token.Score folds it into
// [0, 1].
//
// # Thread Safety
//
// Recognizer implementations must be safe for concurrent use. Engines
// whose native handle is not thread-safe serialize the inference call
// internally and nothing else.
package ocr
