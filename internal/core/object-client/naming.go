package objectclient

import (
	"fmt"
	"strings"
	"time"
)

const (
	kib = 1024
	mib = 1024 * 1024
)

// SanitizeFileName replaces every character outside [A-Za-z0-9.-] with '_'.
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, name)
}

// StoredFileName prefixes the sanitized name with the upload time in unix milliseconds.
func StoredFileName(at time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s", at.UnixMilli(), SanitizeFileName(originalName))
}

// FormatSize renders a byte count as "<n> B", "<x.xx> KB" or "<x.xx> MB".
func FormatSize(n int64) string {
	switch {
	case n < kib:
		return fmt.Sprintf("%d B", n)
	case n < mib:
		return fmt.Sprintf("%.2f KB", float64(n)/kib)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/mib)
	}
}
