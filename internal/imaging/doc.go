// Package imaging provides the image I/O and drawing primitives used by the
// scan annotation pipeline.
//
// This package covers decoding source scans (with EXIF auto-orientation and a
// size limit), caching decoded images for the server's inspection tools,
// reading image metadata, parsing palette colors, cropping regions of
// interest, and drawing markers and text onto RGBA buffers.
// All operations use the standard coordinate system where (0,0) is the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Decoding
//
// DecodeFile accepts PNG, JPEG, GIF, BMP and TIFF. JPEG orientation tags are
// applied so the decoded pixels match what a viewer displays. Files larger
// than the configured limit are rejected before any decoding work happens.
//
// # Drawing
//
// Canvas wraps an *image.RGBA and draws anti-aliased circles, rectangles and
// bitmap-font text onto it. Canvas mutates the buffer it was created with;
// callers that must not change their input copy it first.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. A Canvas is not; use one
// Canvas per buffer per goroutine.
//
// # Error Handling
//
// Functions return wrapped errors for:
//   - File I/O errors and undecodable image data
//   - Files above the size limit (ErrImageTooLarge)
//   - Malformed color strings
//   - Crop regions outside the image bounds
package imaging
