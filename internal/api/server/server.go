package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/ragbase/internal/api/handler"
	"github.com/xela07ax/ragbase/internal/infra"
	"github.com/xela07ax/ragbase/internal/infra/auth"
	"go.uber.org/zap"
)

type Server struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256)
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	agentHandler  *handler.AgentHandler  // /v1/agents (list, commit, get, patch)
	sourceHandler *handler.SourceHandler // /v1/agents/{id}/sources
	uploadHandler *handler.UploadHandler // /v1/uploads
	queryHandler  *handler.QueryHandler  // /v1/agents/{id}/query
}

// NewServer инициализирует HTTP-слой со всеми зависимостями
func NewServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	metrics *infra.Metrics,
	registry *prometheus.Registry,
	agentH *handler.AgentHandler,
	sourceH *handler.SourceHandler,
	uploadH *handler.UploadHandler,
	queryH *handler.QueryHandler,
) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		logger:        logger.Named("api"),
		cfg:           cfg,
		authValidator: validator,
		agentHandler:  agentH,
		sourceHandler: sourceH,
		uploadHandler: uploadH,
		queryHandler:  queryH,
	}

	s.routes(metrics, registry)
	return s
}

func (s *Server) routes(metrics *infra.Metrics, registry *prometheus.Registry) {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics(metrics))

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if registry != nil {
			r.Method(http.MethodGet, "/metrics",
				promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Агенты: список, коммит знаний, карточка, настройки
		r.Route("/v1/agents", func(r chi.Router) {
			r.Get("/", s.agentHandler.List)
			r.Post("/", s.agentHandler.Commit) // batch-коммит, создание либо retrain
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.agentHandler.Get)
				r.Patch("/", s.agentHandler.Patch)

				// Источники знаний агента
				r.Route("/sources", func(r chi.Router) {
					r.Get("/", s.sourceHandler.List)
					r.Delete("/", s.sourceHandler.Delete)
					r.Post("/cleanup", s.sourceHandler.Cleanup)
				})

				// Прокси диалоговых запросов к RAG-сервису
				r.Post("/query", s.queryHandler.Query)
			})
		})

		// Приём байтов для инициализированных источников
		r.Post("/v1/uploads", s.uploadHandler.Upload)
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
