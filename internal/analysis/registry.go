package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/patricesweeney/analysis-jobs/pkg/table"
)

// Result is the payload stored in jobs.result.
type Result map[string]any

// ProgressFunc receives the fraction of the analysis completed so far, in [0,1].
type ProgressFunc func(fraction float64)

type Handler interface {
	Analyze(ctx context.Context, t *table.Table, progress ProgressFunc) (Result, error)
}

type HandlerFunc func(ctx context.Context, t *table.Table, progress ProgressFunc) (Result, error)

func (f HandlerFunc) Analyze(ctx context.Context, t *table.Table, progress ProgressFunc) (Result, error) {
	return f(ctx, t, progress)
}

type Registry struct {
	handlers map[JobType]Handler
	now      func() time.Time
}

type RegistryOption func(r *Registry)

// WithHandler replaces the handler of a known job type.
func WithHandler(jobType JobType, h Handler) RegistryOption {
	return func(r *Registry) {
		r.handlers[jobType] = h
	}
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handlers: map[JobType]Handler{
			PoissonFactorization: NewFactorization(),
			SurvivalAnalysis:     placeholder(SurvivalAnalysis, "Survival analysis requires duration and event columns."),
			NRRDecomposition:     placeholder(NRRDecomposition, "NRR decomposition requires revenue columns."),
			PropensityModel:      placeholder(PropensityModel, "Propensity model requires deal/opportunity data."),
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run dispatches t to the handler of jobType and merges the handler result
// over the base envelope. An unrecognised job type is a valid outcome and
// yields a result of type "unknown". An error is returned only when the
// handler itself fails or panics.
func (r *Registry) Run(ctx context.Context, jobType string, t *table.Table, progress ProgressFunc) (result Result, err error) {
	if progress == nil {
		progress = func(float64) {}
	}

	result = Result{
		"processed_at":  r.now().UTC().Format(time.RFC3339Nano),
		"input_rows":    t.NumRows(),
		"input_columns": append([]string{}, t.Columns...),
	}

	jt := ParseJobType(jobType)
	h, found := r.handlers[jt]
	if !found {
		result["type"] = string(Unknown)
		result["error"] = fmt.Sprintf("Unknown job type: %s", jobType)
		return result, nil
	}

	defer func() {
		if p := recover(); p != nil {
			zap.S().Named("analysis").Errorw("handler panicked", "job_type", jt, "panic", p)
			result, err = nil, errors.Errorf("%s handler panicked: %v", jt, p)
		}
	}()

	out, err := h.Analyze(ctx, t, progress)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for k, v := range out {
		result[k] = v
	}
	if _, ok := result["type"]; !ok {
		result["type"] = string(jt)
	}
	return result, nil
}

func placeholder(jobType JobType, message string) Handler {
	return HandlerFunc(func(_ context.Context, t *table.Table, _ ProgressFunc) (Result, error) {
		return Result{
			"type":          string(jobType),
			"message":       message,
			"columns_found": append([]string{}, t.Columns...),
		}, nil
	})
}
