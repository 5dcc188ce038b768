package match

import "sort"

type Decision string

const (
	DecisionAuto           Decision = "auto"
	DecisionManualRequired Decision = "manual_required"
)

// reviewListSize caps how many runners-up accompany the best candidate when
// the outcome goes to operator review.
const reviewListSize = 5

// Candidate pairs entity ids with their score against the incoming item.
type Candidate struct {
	ApplicationID string
	DepositID     string
	Result
}

// Outcome is the ranker's verdict over a candidate pool.
type Outcome struct {
	Decision   Decision
	Confidence int
	Candidates []Candidate // best first; empty when nothing survived exclusion
}

// Rank orders surviving candidates and decides auto vs. manual. Sort is
// descending by confidence, ties broken by smaller time difference; residual
// ties keep enumeration order (stable sort, deterministic for a given pool
// ordering). At or above AutoThreshold the best candidate commits unattended;
// otherwise the best plus up to four runners-up go to review.
func Rank(cands []Candidate) Outcome {
	if len(cands) == 0 {
		return Outcome{Decision: DecisionManualRequired}
	}
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].TimeDiffMinutes < sorted[j].TimeDiffMinutes
	})
	best := sorted[0]
	if best.Confidence >= AutoThreshold {
		return Outcome{Decision: DecisionAuto, Confidence: best.Confidence, Candidates: sorted[:1]}
	}
	if len(sorted) > reviewListSize {
		sorted = sorted[:reviewListSize]
	}
	return Outcome{Decision: DecisionManualRequired, Confidence: best.Confidence, Candidates: sorted}
}
