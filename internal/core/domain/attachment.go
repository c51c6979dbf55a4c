package domain

import (
	"maps"
	"path"
	"strings"
)

// Attachment is an uploaded media item of the WordPress site.
type Attachment struct {
	ID       int64
	URL      string
	MimeType string
	Title    string
}

// defaultUploadMimes are the upload types a stock site accepts.
var defaultUploadMimes = map[string]string{
	"jpg|jpeg|jpe": "image/jpeg",
	"gif":          "image/gif",
	"png":          "image/png",
	"bmp":          "image/bmp",
	"ico":          "image/x-icon",
	"pdf":          "application/pdf",
	"mp4|m4v":      "video/mp4",
	"mp3|m4a|m4b":  "audio/mpeg",
}

// UploadMimes returns the allowed upload types: the stock set, then extra,
// then the SVG allowance, which always wins.
func UploadMimes(extra map[string]string) map[string]string {
	out := make(map[string]string, len(defaultUploadMimes)+len(extra)+1)
	maps.Copy(out, defaultUploadMimes)
	maps.Copy(out, extra)
	out["svg"] = "image/svg+xml"
	return out
}

// MimeFor looks up the mime type of name in an upload mime table whose keys
// are "|"-separated extension lists.
func MimeFor(mimes map[string]string, name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return "", false
	}
	for exts, mime := range mimes {
		for e := range strings.SplitSeq(exts, "|") {
			if e == ext {
				return mime, true
			}
		}
	}
	return "", false
}
