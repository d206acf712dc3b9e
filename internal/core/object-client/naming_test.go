package objectclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "my_file___.pdf", SanitizeFileName("my file!@#.pdf"))
	assert.Equal(t, "essay-v2.final.docx", SanitizeFileName("essay-v2.final.docx"))
	assert.Equal(t, ".._.._etc_passwd", SanitizeFileName("../../etc/passwd"))
	assert.Equal(t, "r_sum_.pdf", SanitizeFileName("résumé.pdf"))
}

func TestStoredFileName(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "1700000000123-my_file___.pdf", StoredFileName(at, "my file!@#.pdf"))
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:         "0 B",
		500:       "500 B",
		1023:      "1023 B",
		1024:      "1.00 KB",
		2048:      "2.00 KB",
		1536:      "1.50 KB",
		5_242_880: "5.00 MB",
		10 << 20:  "10.00 MB",
	}
	for n, want := range cases {
		assert.Equal(t, want, FormatSize(n), "size %d", n)
	}
}
