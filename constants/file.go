package constants

import "strings"

// Format groups file extensions by how the recognizer handles them.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// AllowedExtensions holds the file extensions accepted for invoice ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"heic": {},
	"heif": {},
}

// contentTypes maps upload content types to the extension used on disk.
var contentTypes = map[string]string{
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/tiff":      "tiff",
	"image/bmp":       "bmp",
	"image/heic":      "heic",
	"image/heif":      "heif",
	"application/pdf": "pdf",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtForContentType returns the on-disk extension for an upload content type.
func ExtForContentType(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := contentTypes[ct]
	return ext, ok
}

// ContentTypeForExt is the inverse of ExtForContentType.
func ContentTypeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	case "bmp":
		return "image/bmp"
	case "heic":
		return "image/heic"
	case "heif":
		return "image/heif"
	case "pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}

// MapExtToFormat reports whether an extension is handled as a PDF or an image.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff", "bmp", "heic", "heif":
		return IMAGE
	}
	return ""
}

// IsHEICExt reports whether the extension needs converting before decode.
func IsHEICExt(ext string) bool {
	e := NormalizeExt(ext)
	return e == "heic" || e == "heif"
}
