package scan

import (
	"testing"
	"time"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

func TestMediaType(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		expected string
	}{
		{"jpeg photo", "IMG_1234.jpg", catalog.TypePhoto},
		{"uppercase extension", "IMG_1234.JPG", catalog.TypePhoto},
		{"heic photo", "IMG_1234.heic", catalog.TypePhoto},
		{"mp4 video", "VID_1234.mp4", catalog.TypeVideo},
		{"mov video", "clip.MOV", catalog.TypeVideo},
		{"sidecar file", "IMG_1234.xmp", ""},
		{"no extension", "README", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mediaType(tt.file); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestWhatsappDate(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		expected string
	}{
		{"whatsapp image", "IMG-20190315-WA0001.jpg", "2019:03:15 00:00:00"},
		{"whatsapp video", "VID-20201212-WA0005.mp4", "2020:12:12 00:00:00"},
		{"camera image", "IMG_20190315_123456.jpg", ""},
		{"impossible date", "IMG-20191347-WA0001.jpg", ""},
		{"prefix only", "IMG-20190315.jpg", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := whatsappDate(tt.file); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDateBucket(t *testing.T) {
	tests := []struct {
		name     string
		takenAt  string
		expected string
	}{
		{"exif timestamp", "2019:03:15 14:30:00", "2019-03-15"},
		{"date only", "2019:03:15", "2019-03-15"},
		{"unknown", catalog.Unknown, catalog.Unknown},
		{"empty", "", catalog.Unknown},
		{"zeroed exif", "0000:00:00 00:00:00", catalog.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dateBucket(tt.takenAt); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestExtractMetaFallbacks(t *testing.T) {
	modTime := time.Date(2023, 7, 1, 10, 30, 0, 0, time.Local)

	t.Run("whatsapp name wins over mtime", func(t *testing.T) {
		takenAt, camera := extractMeta(nil, "/x/IMG-20190315-WA0001.jpg", "IMG-20190315-WA0001.jpg", modTime)
		if takenAt != "2019:03:15 00:00:00" {
			t.Errorf("expected whatsapp date, got %q", takenAt)
		}
		if camera != "whatsapp" {
			t.Errorf("expected whatsapp camera, got %q", camera)
		}
	})

	t.Run("mtime as last resort", func(t *testing.T) {
		takenAt, camera := extractMeta(nil, "/x/IMG_1234.jpg", "IMG_1234.jpg", modTime)
		if takenAt != "2023:07:01 10:30:00" {
			t.Errorf("expected mtime in exif layout, got %q", takenAt)
		}
		if camera != catalog.Unknown {
			t.Errorf("expected unknown camera, got %q", camera)
		}
	})
}

func TestNormalizeCamera(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain model", "Canon EOS R5", "Canon EOS R5"},
		{"diacritics stripped", "Škoda Kamera", "Skoda Kamera"},
		{"whitespace collapsed", "  Canon   EOS\tR5 ", "Canon EOS R5"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeCamera(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
