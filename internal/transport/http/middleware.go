package http

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/verdantis/fulfillment/internal/domain"
)

// Заголовки с личностью запроса. Аутентификация выполняется внешним
// шлюзом, сюда личность приходит уже разрешённой.
const (
	HeaderActorID        = "X-Actor-Id"
	HeaderActorRole      = "X-Actor-Role"
	HeaderOrganizationID = "X-Organization-Id"
)

type contextKey string

const actorContextKey contextKey = "actor"

// actorFromContext достаёт актёра, положенного actorMiddleware.
func actorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey).(domain.Actor)
	return actor, ok
}

// actorMiddleware извлекает актёра из заголовков. Запрос без личности
// или с неизвестной ролью отклоняется до обработчика.
func (s *Server) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := domain.Actor{
			ID:             r.Header.Get(HeaderActorID),
			Role:           domain.Role(r.Header.Get(HeaderActorRole)),
			OrganizationID: r.Header.Get(HeaderOrganizationID),
		}

		if actor.ID == "" || !actor.Role.Valid() {
			s.respondError(w, http.StatusUnauthorized, codeBadRequest, "actor identity headers are missing or invalid")
			return
		}

		ctx := context.WithValue(r.Context(), actorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		s.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Request processed")
	})
}

// statusRecorder запоминает статус ответа для логирования.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
