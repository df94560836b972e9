// Package gdocai recognizes page images with Google Document AI.
//
// Each rasterized page is sent to an OCR processor as a PNG. The returned
// tokens are converted into word boxes in image pixels, so the cloud engine
// is interchangeable with the local tesseract engines.
//
// Usage Requirements:
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS environment variable
// or Config.CredentialsFile
package gdocai
