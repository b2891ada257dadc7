package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/receipt-processor/internal/common"
)

const msgBodyTooLarge = "Input Error request body too large"

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with HTTP 413.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > b.Max {
			common.JSONMessage(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, b.Max+1))
		if err != nil && !errors.Is(err, io.EOF) {
			common.JSONMessage(w, http.StatusBadRequest, "Input Error invalid request body")
			return
		}
		if int64(len(buf)) > b.Max {
			common.JSONMessage(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}
