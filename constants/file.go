package constants

import "strings"

// Source formats understood by the text extractor.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TXT   = "TXT"
)

var extFormats = map[string]string{
	"pdf":  PDF,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"tif":  IMAGE,
	"tiff": IMAGE,
	"bmp":  IMAGE,
	"txt":  TXT,
	"text": TXT,
	"csv":  TXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF, IMAGE or TXT for a known extension and "" otherwise.
func MapExtToFormat(ext string) string {
	return extFormats[NormalizeExt(ext)]
}
