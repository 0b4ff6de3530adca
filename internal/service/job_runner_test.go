package service_test

import (
	"context"
	"errors"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/patricesweeney/analysis-jobs/internal/analysis"
	"github.com/patricesweeney/analysis-jobs/internal/service"
	"github.com/patricesweeney/analysis-jobs/internal/store/model"
	"github.com/patricesweeney/analysis-jobs/pkg/table"
)

const j1CSV = "a,b,c\n1,2,3\n4,5,6\n7,8,9\n2,1,0\n"

func pendingJob(id, jobType, path string) model.Job {
	j := model.Job{ID: id, JobType: jobType, Status: model.JobStatusPending}
	if path != "" {
		j.InputFilePath = &path
	}
	return j
}

func isNonDecreasing(values []int) bool {
	return sort.IntsAreSorted(values)
}

var _ = Describe("job runner", func() {
	var (
		ctx     context.Context
		jobs    *fakeJobStore
		objects *fakeObjectStore
		runner  *service.JobRunner
		opts    []service.JobRunnerOption
	)

	newRunner := func() *service.JobRunner {
		return service.NewJobRunner(&fakeStore{jobs: jobs}, objects, append([]service.JobRunnerOption{service.WithBackOff(noBackOff)}, opts...)...)
	}

	BeforeEach(func() {
		ctx = context.TODO()
		objects = newFakeObjectStore()
		opts = nil
	})

	Context("successful run", func() {
		BeforeEach(func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			runner = newRunner()
		})

		It("processes the factorization job to done", func() {
			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))
			Expect(outcome.JobID).To(Equal("j1"))
			Expect(outcome.AlreadyProcessed).To(BeFalse())

			job := jobs.Job("j1")
			Expect(job.Status).To(Equal(model.JobStatusDone))
			Expect(job.Progress).To(Equal(100))
			Expect(job.ErrorMessage).To(BeNil())
			Expect(job.Result).NotTo(BeNil())

			result := job.Result.Data
			Expect(result["input_rows"]).To(Equal(4))
			Expect(result["type"]).To(Equal("poisson_factorization"))
			Expect(result["n_factors"]).To(BeElementOf(2, 3))
			Expect(result["input_columns"]).To(Equal([]string{"a", "b", "c"}))
			Expect(result).To(HaveKey("processed_at"))

			Expect(objects.Has("u/j1.csv")).To(BeFalse())
			Expect(job.InputFilePath).To(BeNil())
		})

		It("issues the writes in order", func() {
			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())

			writes := jobs.Writes()
			Expect(writes[0]).To(Equal("Claim"))
			Expect(writes[len(writes)-2:]).To(Equal([]string{"Complete", "ClearInputFile"}))
			Expect(writes).NotTo(ContainElement("Fail"))
		})

		It("writes non-decreasing progress from claim to done", func() {
			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())

			history := jobs.ProgressHistory()
			Expect(history[0]).To(Equal(model.ProgressClaimed))
			Expect(history[len(history)-1]).To(Equal(100))
			Expect(history).To(ContainElements(45, 90))
			Expect(isNonDecreasing(history)).To(BeTrue())
		})

		It("claims a job left running by a previous execution", func() {
			jobs = newFakeJobStore(model.Job{ID: "j1", JobType: "poisson_factorization", Status: model.JobStatusRunning, Progress: 45, InputFilePath: ptr("u/j1.csv")})
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))
		})

		It("retries a transient claim failure", func() {
			jobs.FailNext("Claim", errors.New("connection reset"), errors.New("connection reset"))

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))
			Expect(jobs.Calls("Claim")).To(Equal(3))
		})

		It("completes the job when progress writes keep failing", func() {
			jobs.FailAlways("UpdateProgress", errors.New("timeout"))

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))
			Expect(jobs.Job("j1").Progress).To(Equal(100))
		})

		It("keeps the job done when the file cannot be deleted", func() {
			objects.deleteErr = errors.New("access denied")

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))

			job := jobs.Job("j1")
			Expect(job.Status).To(Equal(model.JobStatusDone))
			Expect(job.InputFilePath).NotTo(BeNil())
			Expect(jobs.Writes()).NotTo(ContainElement("ClearInputFile"))
		})

		It("keeps the job done when the reference cannot be cleared", func() {
			jobs.FailAlways("ClearInputFile", errors.New("timeout"))

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))
			Expect(jobs.Job("j1").Status).To(Equal(model.JobStatusDone))
			Expect(objects.Has("u/j1.csv")).To(BeFalse())
		})
	})

	Context("job lookup", func() {
		It("reports a missing job without writing", func() {
			jobs = newFakeJobStore()
			runner = newRunner()

			outcome, err := runner.Process(ctx, "missing")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusError))
			Expect(outcome.Error).To(Equal("job missing not found"))
			Expect(jobs.Writes()).To(BeEmpty())
		})

		It("returns an error when the store cannot be read", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/j1.csv"))
			jobs.FailAlways("Get", errors.New("connection refused"))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).NotTo(BeNil())
			Expect(jobs.Writes()).To(BeEmpty())
		})
	})

	DescribeTable("idempotency gate",
		func(status model.JobStatus) {
			message := "previous failure"
			jobs = newFakeJobStore(model.Job{
				ID:            "j1",
				JobType:       "poisson_factorization",
				Status:        status,
				Progress:      37,
				InputFilePath: ptr("u/j1.csv"),
				ErrorMessage:  &message,
			})
			objects.Put("u/j1.csv", []byte(j1CSV))
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(status))
			Expect(outcome.Message).To(Equal("Job already processed"))
			Expect(outcome.AlreadyProcessed).To(BeTrue())

			Expect(jobs.Writes()).To(BeEmpty())
			Expect(objects.Downloads()).To(BeZero())
			job := jobs.Job("j1")
			Expect(job.Progress).To(Equal(37))
			Expect(*job.ErrorMessage).To(Equal(message))
		},
		Entry("done", model.JobStatusDone),
		Entry("error", model.JobStatusError),
	)

	Context("failures after the claim", func() {
		expectFailed := func(prefix string) {
			job := jobs.Job("j1")
			Expect(job.Status).To(Equal(model.JobStatusError))
			Expect(job.Progress).To(Equal(0))
			Expect(job.ErrorMessage).NotTo(BeNil())
			Expect(*job.ErrorMessage).To(HavePrefix(prefix + ": "))
			Expect(job.Result).To(BeNil())
		}

		It("fails a job without an input file and never downloads", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", ""))
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusError))
			Expect(outcome.Error).To(HavePrefix("MissingInput: "))
			Expect(objects.Downloads()).To(BeZero())
			expectFailed("MissingInput")
		})

		It("fails when the object is missing", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/gone.csv"))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("DownloadError")
		})

		It("fails on an unparsable file", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte("a,b\n1,2,3\n"))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("ParseError")
		})

		It("fails on an empty file", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte("  \n"))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("ParseError")
		})

		It("fails when the column config names a missing column", func() {
			job := pendingJob("j1", "poisson_factorization", "u/j1.csv")
			job.ColumnConfig = model.MakeJSONField(table.ColumnConfig{
				Format:           table.FormatWide,
				CustomerIDColumn: "customer",
				FeatureColumns:   []string{"a"},
			})
			jobs = newFakeJobStore(job)
			objects.Put("u/j1.csv", []byte(j1CSV))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("ColumnConfigError")
		})

		It("fails when the handler returns an error", func() {
			jobs = newFakeJobStore(pendingJob("j1", "survival_analysis", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			opts = append(opts, service.WithRegistry(analysis.NewRegistry(
				analysis.WithHandler(analysis.SurvivalAnalysis, analysis.HandlerFunc(func(context.Context, *table.Table, analysis.ProgressFunc) (analysis.Result, error) {
					return nil, errors.New("no duration column")
				})),
			)))
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Error).To(ContainSubstring("no duration column"))
			expectFailed("HandlerError")
			Expect(objects.Has("u/j1.csv")).To(BeTrue())
		})

		It("fails when the handler panics", func() {
			jobs = newFakeJobStore(pendingJob("j1", "survival_analysis", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			opts = append(opts, service.WithRegistry(analysis.NewRegistry(
				analysis.WithHandler(analysis.SurvivalAnalysis, analysis.HandlerFunc(func(context.Context, *table.Table, analysis.ProgressFunc) (analysis.Result, error) {
					panic("index out of range")
				})),
			)))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("HandlerError")
		})

		It("records the failure of a cancelled execution", func() {
			jobs = newFakeJobStore(pendingJob("j1", "survival_analysis", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			cctx, cancel := context.WithCancel(ctx)
			opts = append(opts, service.WithRegistry(analysis.NewRegistry(
				analysis.WithHandler(analysis.SurvivalAnalysis, analysis.HandlerFunc(func(ctx context.Context, _ *table.Table, _ analysis.ProgressFunc) (analysis.Result, error) {
					cancel()
					return nil, ctx.Err()
				})),
			)))
			runner = newRunner()

			_, err := runner.Process(cctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("HandlerError")
		})

		It("returns an error when the failure cannot be recorded", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/j1.csv"))
			objects.downloadErr = errors.New("bucket unreachable")
			jobs.FailAlways("Fail", errors.New("database unreachable"))
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).NotTo(BeNil())
			var unrecorded *service.ErrFailureNotRecorded
			Expect(errors.As(err, &unrecorded)).To(BeTrue())
			Expect(unrecorded.JobID).To(Equal("j1"))
			Expect(outcome.Error).To(HavePrefix("DownloadError: "))

			Expect(jobs.Calls("Fail")).To(Equal(3))
			Expect(jobs.Job("j1").Status).To(Equal(model.JobStatusRunning))
		})

		It("records the failure after a transient failure write error", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", ""))
			jobs.FailNext("Fail", errors.New("connection reset"))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("MissingInput")
		})

		It("fails the job when the claim keeps failing", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			jobs.FailAlways("Claim", errors.New("connection reset"))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			expectFailed("ClaimError")
			Expect(objects.Downloads()).To(BeZero())
		})
	})

	Context("dispatch", func() {
		It("completes an unknown job type", func() {
			jobs = newFakeJobStore(pendingJob("j1", "churn_forecast", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))

			result := jobs.Job("j1").Result.Data
			Expect(result["type"]).To(Equal("unknown"))
			Expect(result["error"]).To(Equal("Unknown job type: churn_forecast"))
		})

		It("stores a placeholder result", func() {
			jobs = newFakeJobStore(pendingJob("j1", "propensity_model", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())

			result := jobs.Job("j1").Result.Data
			Expect(result["type"]).To(Equal("propensity_model"))
			Expect(result["columns_found"]).To(Equal([]string{"a", "b", "c"}))
			Expect(result).To(HaveKey("message"))
		})

		It("never writes decreasing progress from handler reports", func() {
			jobs = newFakeJobStore(pendingJob("j1", "survival_analysis", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte(j1CSV))
			opts = append(opts, service.WithRegistry(analysis.NewRegistry(
				analysis.WithHandler(analysis.SurvivalAnalysis, analysis.HandlerFunc(func(_ context.Context, _ *table.Table, progress analysis.ProgressFunc) (analysis.Result, error) {
					progress(0.5)
					progress(0.2)
					progress(0.5)
					progress(7)
					return analysis.Result{"type": "survival_analysis"}, nil
				})),
			)))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())

			history := jobs.ProgressHistory()
			Expect(history).To(Equal([]int{10, 45, 65, 90, 100}))
		})

		It("applies the column config before dispatch", func() {
			job := pendingJob("j1", "poisson_factorization", "u/long.csv")
			job.ColumnConfig = model.MakeJSONField(table.ColumnConfig{
				Format:             table.FormatLong,
				CustomerIDColumn:   "customer",
				FeatureNameColumn:  "feature",
				FeatureValueColumn: "value",
			})
			jobs = newFakeJobStore(job)
			objects.Put("u/long.csv", []byte("customer,feature,value\nc1,seats,3\nc1,logins,10\nc2,seats,1\nc2,logins,4\n"))
			runner = newRunner()

			_, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())

			result := jobs.Job("j1").Result.Data
			Expect(result["input_rows"]).To(Equal(2))
			Expect(result["input_columns"]).To(ConsistOf("customer", "seats", "logins"))
			Expect(result["n_factors"]).To(Equal(2))
		})

		It("does not factor numeric customer ids", func() {
			job := pendingJob("j1", "poisson_factorization", "u/long.csv")
			job.ColumnConfig = model.MakeJSONField(table.ColumnConfig{
				Format:             table.FormatLong,
				CustomerIDColumn:   "customer_id",
				FeatureNameColumn:  "feature",
				FeatureValueColumn: "value",
			})
			jobs = newFakeJobStore(job)
			objects.Put("u/long.csv", []byte("customer_id,feature,value\n101,seats,3\n101,logins,10\n102,seats,1\n102,logins,4\n103,seats,2\n103,logins,7\n"))
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))

			result := jobs.Job("j1").Result.Data
			Expect(result["n_factors"]).To(Equal(2))
			Expect(result["factor_columns"]).To(Equal([]string{"seats", "logins"}))
			Expect(result["factor_weights"]).To(HaveLen(2))
		})

		It("completes with an error field on infinite values", func() {
			jobs = newFakeJobStore(pendingJob("j1", "poisson_factorization", "u/j1.csv"))
			objects.Put("u/j1.csv", []byte("a,b\n1,inf\n2,3\n"))
			runner = newRunner()

			outcome, err := runner.Process(ctx, "j1")
			Expect(err).To(BeNil())
			Expect(outcome.Status).To(Equal(model.JobStatusDone))
			Expect(jobs.Job("j1").Result.Data["error"]).To(Equal("Input contains infinite values"))
		})
	})
})

func ptr(s string) *string {
	return &s
}
