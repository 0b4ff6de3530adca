package config_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/patricesweeney/analysis-jobs/internal/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("config", func() {
	It("applies defaults", func() {
		cfg, err := config.New()
		Expect(err).To(BeNil())
		Expect(cfg.Storage.Bucket).To(Equal("analysis-uploads"))
		Expect(cfg.Service.JobTimeout).To(Equal(600 * time.Second))
		Expect(cfg.Service.Auth.AuthenticationType).To(Equal("none"))
		Expect(cfg.UsesPostgres()).To(BeTrue())
	})

	It("fails validation without storage credentials", func() {
		cfg, err := config.New()
		Expect(err).To(BeNil())
		cfg.Storage.Endpoint = ""
		cfg.Storage.AccessKey = ""
		cfg.Storage.SecretKey = ""

		err = cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("ANALYSIS_JOBS_S3_ENDPOINT")))
		Expect(err).To(MatchError(ContainSubstring("ANALYSIS_JOBS_S3_SECRET_KEY")))
	})

	It("loads an env file", func() {
		envFile := filepath.Join(GinkgoT().TempDir(), ".env")
		Expect(os.WriteFile(envFile, []byte("ANALYSIS_JOBS_S3_ENDPOINT=minio:9000\nANALYSIS_JOBS_S3_ACCESS_KEY=key\nANALYSIS_JOBS_S3_SECRET_KEY=secret\n"), 0o600)).To(Succeed())
		DeferCleanup(func() {
			os.Unsetenv("ANALYSIS_JOBS_S3_ENDPOINT")
			os.Unsetenv("ANALYSIS_JOBS_S3_ACCESS_KEY")
			os.Unsetenv("ANALYSIS_JOBS_S3_SECRET_KEY")
		})

		cfg, err := config.New(envFile)
		Expect(err).To(BeNil())
		Expect(cfg.Storage.Endpoint).To(Equal("minio:9000"))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("fails on a missing env file", func() {
		_, err := config.New("/does/not/exist.env")
		Expect(err).NotTo(BeNil())
	})
})
