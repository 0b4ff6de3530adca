package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	api "github.com/patricesweeney/analysis-jobs/api/v1"
	"github.com/patricesweeney/analysis-jobs/internal/handlers/validator"
	"github.com/patricesweeney/analysis-jobs/internal/service"
	"github.com/patricesweeney/analysis-jobs/pkg/requestid"
)

type ServiceHandler struct {
	spawner   service.Spawner
	jobSrv    *service.JobService
	validator *validator.Validator
}

func NewServiceHandler(spawner service.Spawner, jobService *service.JobService) *ServiceHandler {
	v := validator.NewValidator()
	v.Register(validator.NewTriggerValidationRules()...)

	return &ServiceHandler{
		spawner:   spawner,
		jobSrv:    jobService,
		validator: v,
	}
}

// Routes mounts the handlers. authn guards everything but the health check.
func (h *ServiceHandler) Routes(router chi.Router, authn func(http.Handler) http.Handler) {
	router.Get("/health", h.Health)
	router.Group(func(r chi.Router) {
		r.Use(authn)
		r.Post("/trigger", h.Trigger)
		r.Get("/api/v1/jobs/{id}", h.GetJob)
	})
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, api.ErrorResponse{
		Error:     message,
		Status:    api.StatusError,
		RequestID: requestid.FromContextPtr(r.Context()),
	})
}
