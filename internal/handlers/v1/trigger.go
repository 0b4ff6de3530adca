package v1

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	api "github.com/patricesweeney/analysis-jobs/api/v1"
	"github.com/patricesweeney/analysis-jobs/internal/handlers/validator"
	"github.com/patricesweeney/analysis-jobs/internal/service"
	"github.com/patricesweeney/analysis-jobs/pkg/requestid"
)

const (
	errJobIDRequired = "jobId required"
	errJobIDInvalid  = "invalid jobId"
)

// Trigger hands the job id to the spawner and answers without waiting for
// the job.
func (h *ServiceHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("trigger_handler").With("request_id", requestid.FromRequest(r))

	var body api.TriggerRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			logger.Debugw("undecodable trigger body", "error", err)
		}
	}

	if err := h.validator.Struct(body); err != nil {
		if slices.Contains(validator.FailedTags(err), "required") {
			renderError(w, r, http.StatusBadRequest, errJobIDRequired)
			return
		}
		renderError(w, r, http.StatusBadRequest, errJobIDInvalid)
		return
	}

	if err := h.spawner.Spawn(r.Context(), body.JobID); err != nil {
		logger.Errorw("failed to spawn job", "job_id", body.JobID, "error", err)
		if errors.Is(err, service.ErrSpawnerFull) {
			renderError(w, r, http.StatusServiceUnavailable, err.Error())
			return
		}
		renderError(w, r, http.StatusInternalServerError, "failed to spawn job")
		return
	}

	logger.Infow("job triggered", "job_id", body.JobID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, api.TriggerResponse{Status: api.StatusTriggered, JobID: body.JobID})
}
