package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/verdantis/fulfillment/internal/domain"
)

// HeaderIdempotencyKey защищает создающие запросы от повторной доставки.
const HeaderIdempotencyKey = "Idempotency-Key"

const idempotencyTTL = 24 * time.Hour

// idempotencyMiddleware воспроизводит сохранённый ответ при повторе
// запроса с тем же ключом. Ключ опционален: запрос без заголовка
// обрабатывается как обычно.
func (s *Server) idempotencyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderIdempotencyKey)
		if key == "" || s.idempotency == nil {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "failed to read request body")
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		requestHash := hashRequest(r.Method, r.URL.Path, body)

		if _, err := s.idempotency.CreateProcessing(key, requestHash, time.Now().UTC().Add(idempotencyTTL)); err != nil {
			switch {
			case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
				s.replayIdempotent(w, key, requestHash)
			case errors.Is(err, domain.ErrIdempotencyHashMismatch):
				s.respondError(w, http.StatusConflict, codeIdempotencyMismatch, "idempotency key is used with different request payload")
			default:
				s.logger.WithError(err).Error("Failed to register idempotency key")
				s.respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
			}
			return
		}

		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		if recorder.status >= http.StatusOK && recorder.status < http.StatusMultipleChoices {
			if err := s.idempotency.MarkDone(key, recorder.body.Bytes(), recorder.status); err != nil {
				s.logger.WithError(err).Warn("Failed to store idempotent response")
			}
			return
		}
		if err := s.idempotency.MarkFailed(key, recorder.body.Bytes(), recorder.status); err != nil {
			s.logger.WithError(err).Warn("Failed to store failed idempotent response")
		}
	})
}

// replayIdempotent отдаёт сохранённый ответ для ранее обработанного ключа.
func (s *Server) replayIdempotent(w http.ResponseWriter, key, requestHash string) {
	record, err := s.idempotency.Get(key)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load idempotency record")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	if record.RequestHash != requestHash {
		s.respondError(w, http.StatusConflict, codeIdempotencyMismatch, "idempotency key is used with different request payload")
		return
	}

	if record.Status == domain.IdempotencyStatusProcessing {
		s.respondError(w, http.StatusConflict, codeRequestInProgress, "original request is still being processed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(record.HTTPStatus)
	_, _ = w.Write(record.ResponseBody)
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// responseRecorder буферизует тело ответа для сохранения в idempotency store.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
