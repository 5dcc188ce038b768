package match

import (
	"fmt"
	"strings"
	"time"
)

const (
	baseExact   = 90
	basePartial = 60
	bonusHour   = 10
	bonusDay    = 5

	// ExclusionWindowMinutes bounds freshness: pairs more than 7 days apart
	// are never candidates, whatever the name says.
	ExclusionWindowMinutes = 7 * 24 * 60

	// AutoThreshold is the minimum confidence for an unattended commit. Below
	// it the pair goes to operator review; a wrong auto-match would send a
	// real invitation to the wrong person.
	AutoThreshold = 80
)

// Result is a scored (application, deposit) pairing.
type Result struct {
	Confidence      int
	TimeDiffMinutes int64
	Reason          string
}

// Score computes the 0-100 confidence that a depositor and an applicant are
// the same person paying once. ok=false excludes the pair entirely: no name
// overlap, or the events are more than the exclusion window apart.
func Score(depositorName, applicantName string, depositAt, submittedAt time.Time) (Result, bool) {
	diff := depositAt.Sub(submittedAt)
	if diff < 0 {
		diff = -diff
	}
	minutes := int64(diff / time.Minute)
	if minutes > ExclusionWindowMinutes {
		return Result{}, false
	}

	dn := Normalize(depositorName)
	an := Normalize(applicantName)
	if dn == "" || an == "" {
		return Result{}, false
	}
	var base int
	var branch string
	switch {
	case dn == an:
		base, branch = baseExact, "exact name"
	case strings.Contains(dn, an) || strings.Contains(an, dn):
		base, branch = basePartial, "partial name"
	default:
		return Result{}, false
	}

	bonus := 0
	window := "beyond 1d"
	switch {
	case minutes <= 60:
		bonus, window = bonusHour, "within 1h"
	case minutes <= 1440:
		bonus, window = bonusDay, "within 1d"
	}

	confidence := base + bonus
	if confidence > 100 {
		confidence = 100
	}
	return Result{
		Confidence:      confidence,
		TimeDiffMinutes: minutes,
		Reason:          fmt.Sprintf("%s +%d, %s +%d, diff=%dmin", branch, base, window, bonus, minutes),
	}, true
}
