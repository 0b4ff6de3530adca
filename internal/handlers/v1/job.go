package v1

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/internal/handlers/v1/mappers"
	"github.com/patricesweeney/analysis-jobs/internal/service"
)

func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.jobSrv.GetJob(r.Context(), id)
	if err != nil {
		var notFound *service.ErrJobNotFound
		if errors.As(err, &notFound) {
			renderError(w, r, http.StatusNotFound, err.Error())
			return
		}
		zap.S().Named("job_handler").Errorw("failed to get job", "job_id", id, "error", err)
		renderError(w, r, http.StatusInternalServerError, "failed to get job")
		return
	}

	render.JSON(w, r, mappers.JobToApi(job))
}
