package middleware

import (
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/ivyready/internal/api/response"
)

// formOverhead is the room left in the body cap for text fields and part headers.
const formOverhead = 1 << 20

// MultipartLimit parses a multipart body before the handler runs. Bodies larger
// than maxFileSize plus formOverhead, and file parts larger than maxFileSize, are
// rejected with 413. Requests that are not multipart pass through untouched.
func MultipartLimit(maxFileSize int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+formOverhead)

			if err := r.ParseMultipartForm(maxFileSize); err != nil {
				var tooLarge *http.MaxBytesError
				switch {
				case errors.Is(err, http.ErrNotMultipart):
				case errors.As(err, &tooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
					tooLargeResponse(w, maxFileSize)
					return
				default:
					zerolog.Ctx(r.Context()).Warn().Err(err).Msg("malformed multipart body")
					response.Error(w, http.StatusBadRequest, "malformed multipart body")
					return
				}
			}
			if r.MultipartForm != nil {
				defer func() { _ = r.MultipartForm.RemoveAll() }()
				for _, headers := range r.MultipartForm.File {
					for _, fh := range headers {
						if fh.Size > maxFileSize {
							tooLargeResponse(w, maxFileSize)
							return
						}
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func tooLargeResponse(w http.ResponseWriter, maxFileSize int64) {
	response.Error(w, http.StatusRequestEntityTooLarge,
		"file exceeds the maximum upload size of "+humanize.IBytes(uint64(maxFileSize)))
}
