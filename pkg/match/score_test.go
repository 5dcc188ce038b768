package match

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestScoreExactWithinHour(t *testing.T) {
	res, ok := Score("Kim Minjun", "Kim Minjun", t0.Add(30*time.Minute), t0)
	if !ok {
		t.Fatalf("pair excluded")
	}
	if res.Confidence != 100 {
		t.Fatalf("expected 100 got %d (%s)", res.Confidence, res.Reason)
	}
	if res.TimeDiffMinutes != 30 {
		t.Fatalf("expected diff 30 got %d", res.TimeDiffMinutes)
	}
}

func TestScoreSuffixDigitsWithinDay(t *testing.T) {
	// digits stripped by normalization: exact base 90 + day bonus 5
	res, ok := Score("Kim Minjun23", "Kim Minjun", t0.Add(90*time.Minute), t0)
	if !ok {
		t.Fatalf("pair excluded")
	}
	if res.Confidence != 95 {
		t.Fatalf("expected 95 got %d (%s)", res.Confidence, res.Reason)
	}
}

func TestScorePartialWithinDay(t *testing.T) {
	res, ok := Score("Lee", "Lee Younghee", t0.Add(3*time.Hour), t0)
	if !ok {
		t.Fatalf("pair excluded")
	}
	if res.Confidence != 65 {
		t.Fatalf("expected 65 got %d (%s)", res.Confidence, res.Reason)
	}
}

func TestScoreBeyondSevenDaysExcluded(t *testing.T) {
	// partial name containment, but 20000 min apart: excluded regardless
	if _, ok := Score("Lee", "Lee Younghee", t0.Add(20000*time.Minute), t0); ok {
		t.Fatalf("expected exclusion beyond 7 days")
	}
}

func TestScoreNoNameOverlapExcluded(t *testing.T) {
	if _, ok := Score("Park Yeonghee", "Kim Minjun", t0.Add(time.Minute), t0); ok {
		t.Fatalf("expected exclusion without name overlap")
	}
}

func TestScoreEmptyNormalizedExcluded(t *testing.T) {
	// an all-digit depositor name normalizes to "" and must not contain-match
	if _, ok := Score("12345", "Kim Minjun", t0, t0); ok {
		t.Fatalf("expected exclusion for empty normalized name")
	}
}

// Symmetry: swapping roles (and therefore the timestamp order) must not change
// confidence or reason.
func TestScoreSymmetry(t *testing.T) {
	a, okA := Score("Kim Minjun23", "Kim Minjun", t0.Add(90*time.Minute), t0)
	b, okB := Score("Kim Minjun23", "Kim Minjun", t0, t0.Add(90*time.Minute))
	if !okA || !okB {
		t.Fatalf("pair excluded")
	}
	if a != b {
		t.Fatalf("asymmetric score: %+v vs %+v", a, b)
	}
}

func TestScoreBoundaries(t *testing.T) {
	// exactly 60 min keeps the hour bonus
	res, ok := Score("Kim Minjun", "Kim Minjun", t0.Add(60*time.Minute), t0)
	if !ok || res.Confidence != 100 {
		t.Fatalf("expected 100 at 60min got %+v ok=%v", res, ok)
	}
	// exactly 1440 min keeps the day bonus
	res, ok = Score("Kim Minjun", "Kim Minjun", t0.Add(1440*time.Minute), t0)
	if !ok || res.Confidence != 95 {
		t.Fatalf("expected 95 at 1440min got %+v ok=%v", res, ok)
	}
	// exactly 10080 min is still inside the exclusion window
	res, ok = Score("Kim Minjun", "Kim Minjun", t0.Add(10080*time.Minute), t0)
	if !ok || res.Confidence != 90 {
		t.Fatalf("expected 90 at 10080min got %+v ok=%v", res, ok)
	}
	if _, ok = Score("Kim Minjun", "Kim Minjun", t0.Add(10081*time.Minute), t0); ok {
		t.Fatalf("expected exclusion at 10081min")
	}
}
