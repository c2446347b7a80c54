package audit

// Stage vocabulary shared by lead and pipeline validation. Unknown stages
// are tolerated as warnings so a renamed pipeline column never blocks an
// import.
var LeadStages = []string{
	"New Lead",
	"Lead",
	"Qualified",
	"Application",
	"Loan Approved",
	"Documentation",
	"Closing",
	"Funded",
	"Rejected",
}

// StageMinimumProbability maps each stage to the lowest probability that is
// plausible for an entry sitting in it. Entries more than 10 points below
// the floor draw a warning.
var StageMinimumProbability = map[string]float64{
	"New Lead":      0,
	"Lead":          10,
	"Qualified":     25,
	"Application":   40,
	"Loan Approved": 60,
	"Documentation": 75,
	"Closing":       85,
	"Funded":        100,
	"Rejected":      0,
}

// ClientStatuses is the accepted client status vocabulary.
var ClientStatuses = []string{"Active", "Inactive", "At Risk", "VIP"}

// LeadPriorities is the accepted lead priority vocabulary.
var LeadPriorities = []string{"Low", "Medium", "High", "Urgent"}

func isKnownStage(stage string) bool {
	return contains(LeadStages, stage)
}

// isTerminalStage reports whether a stage marks a finished deal. "Closed"
// is accepted here even though it is not part of the pipeline vocabulary:
// legacy records use it interchangeably with Funded.
func isTerminalStage(stage string) bool {
	return stage == "Funded" || stage == "Closed" || stage == "Rejected"
}

func isConvertedStage(stage string) bool {
	return stage == "Funded" || stage == "Closed"
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
