package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quiz-player/internal/api"
	"quiz-player/internal/app"
)

// NewRouter mounts the grading API, the live board feed, health and metrics.
func NewRouter(service *app.AttemptService, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	attempts := NewAttemptHandler(service)
	ws := NewWSHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", api.LearnerHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.ServeWS)

	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Timeout(30 * time.Second))
		gr.Get(api.QuizPath, attempts.GetQuiz)
		gr.Get(api.QuizPath+"/board", attempts.Board)
		gr.Post(api.StartPath, attempts.Start)
		gr.Put(api.AnswerPath, attempts.Answer)
		gr.Post(api.CompletePath, attempts.Complete)
		gr.Post(api.AbandonPath, attempts.Abandon)
	})
	return r
}
