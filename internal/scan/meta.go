package scan

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// exifDate is the timestamp layout used by EXIF and kept verbatim in the
// catalog's TakenAt field.
const exifDate = "2006:01:02 15:04:05"

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tiff": true,
	".bmp": true, ".gif": true, ".heic": true, ".webp": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true,
	".mkv": true, ".flv": true, ".wmv": true,
}

// whatsappName matches WhatsApp export names like IMG-20190315-WA0001.jpg
// and VID-20201212-WA0005.mp4; the capture group is the date.
var whatsappName = regexp.MustCompile(`^(?:IMG|VID)-(\d{8})-WA\d+`)

// mediaType classifies a file name as photo or video by extension,
// empty string for anything else.
func mediaType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case photoExtensions[ext]:
		return catalog.TypePhoto
	case videoExtensions[ext]:
		return catalog.TypeVideo
	default:
		return ""
	}
}

// whatsappDate extracts the capture date encoded in a WhatsApp file name,
// midnight of that day in EXIF layout, or "" when the name does not match.
func whatsappDate(name string) string {
	m := whatsappName.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	d, err := time.Parse("20060102", m[1])
	if err != nil {
		return ""
	}
	return d.Format(exifDate)
}

// dateBucket turns a TakenAt timestamp into the YYYY-MM-DD group name,
// or Unknown when the date part does not parse.
func dateBucket(takenAt string) string {
	datePart, _, _ := strings.Cut(takenAt, " ")
	d, err := time.Parse("2006:01:02", datePart)
	if err != nil {
		return catalog.Unknown
	}
	return d.Format("2006-01-02")
}

// extractMeta fills TakenAt and Camera for one file. EXIF wins, the
// WhatsApp file name is next, the file's mtime is the last resort.
func extractMeta(et *exiftool.Exiftool, path, name string, modTime time.Time) (takenAt, camera string) {
	takenAt = catalog.Unknown
	camera = catalog.Unknown

	if et != nil {
		fm := et.ExtractMetadata(path)[0]
		if fm.Err == nil {
			for _, tag := range []string{"DateTimeOriginal", "CreateDate"} {
				if v, err := fm.GetString(tag); err == nil && v != "" {
					takenAt = v
					break
				}
			}
			if v, err := fm.GetString("Model"); err == nil {
				if model := NormalizeCamera(v); model != "" {
					camera = model
				}
			}
		}
	}

	if wa := whatsappDate(name); wa != "" {
		if takenAt == catalog.Unknown {
			takenAt = wa
		}
		if camera == catalog.Unknown {
			camera = "whatsapp"
		}
	}

	if takenAt == catalog.Unknown {
		takenAt = modTime.Format(exifDate)
	}
	return takenAt, camera
}
