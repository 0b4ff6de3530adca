package analysis

type JobType string

const (
	PoissonFactorization JobType = "poisson_factorization"
	SurvivalAnalysis     JobType = "survival_analysis"
	NRRDecomposition     JobType = "nrr_decomposition"
	PropensityModel      JobType = "propensity_model"

	// Unknown stands for any job type string the registry does not recognise.
	Unknown JobType = "unknown"
)

var knownJobTypes = []JobType{
	PoissonFactorization,
	SurvivalAnalysis,
	NRRDecomposition,
	PropensityModel,
}

// ParseJobType maps a stored job type to its variant. Unrecognised values map
// to Unknown.
func ParseJobType(s string) JobType {
	for _, t := range knownJobTypes {
		if string(t) == s {
			return t
		}
	}
	return Unknown
}

func (t JobType) String() string {
	return string(t)
}
