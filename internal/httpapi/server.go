package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"devicemodel/internal/config"
	"devicemodel/internal/models"
	"devicemodel/internal/repo"
	"devicemodel/internal/services"
)

// DeviceModel is the device model repository as the API uses it.
type DeviceModel interface {
	services.DeviceModel
	AssignBootConfigSet(ctx context.Context, bootConfigSetID, stationID string, attributeIDs []uint) ([]models.VariableAttribute, error)
	ReadAllByQuery(ctx context.Context, p repo.VariableAttributeQuery) ([]models.VariableAttribute, error)
	ExistByQuery(ctx context.Context, p repo.VariableAttributeQuery) (int64, error)
	DeleteAllByQuery(ctx context.Context, p repo.VariableAttributeQuery) ([]models.VariableAttribute, error)
	FindComponentAndVariable(ctx context.Context, ct models.ComponentType, vt models.VariableType) (repo.ComponentAndVariable, error)
}

type Server struct {
	Cfg       config.Config
	Repo      DeviceModel
	Processor *services.DeviceModelProcessor
	Boot      *services.BootConfigurator
	Health    func(ctx context.Context) error
	log       *zap.Logger
}

func NewServer(cfg config.Config, dm DeviceModel, processor *services.DeviceModelProcessor, boot *services.BootConfigurator, health func(ctx context.Context) error, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Cfg: cfg, Repo: dm, Processor: processor, Boot: boot, Health: health, log: log}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1/gateway", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler { return RequireBearer(s.Cfg.GatewayAPIKey, next) })
		r.Post("/events", s.IngestEvent)
	})

	r.Route("/v1/stations/{stationId}", func(r chi.Router) {
		r.Post("/reports", s.PostReports)
		r.Post("/get-variables-results", s.PostGetVariablesResults)
		r.Post("/set-variables-data", s.PostSetVariablesData)
		r.Post("/set-variables-results", s.PostSetVariablesResult)
		r.Get("/boot-set-variables", s.GetBootSetVariables)
		r.Put("/boot-config", s.PutBootConfig)
		r.Post("/boot-config/apply", s.ApplyBootConfig)
	})

	r.Get("/v1/variable-attributes", s.ListVariableAttributes)
	r.Delete("/v1/variable-attributes", s.DeleteVariableAttributes)
	r.Get("/v1/variable-attributes/count", s.CountVariableAttributes)
	r.Get("/v1/device-model/lookup", s.LookupComponentAndVariable)

	r.Get("/healthz", s.Healthz)
	return r
}

func (s *Server) IngestEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := readAll(r, 2<<20)
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	evtType, err := s.Processor.Ingest(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "type": evtType})
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		if err := s.Health(r.Context()); err != nil {
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
