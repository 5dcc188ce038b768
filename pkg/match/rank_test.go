package match

import "testing"

func cand(app string, conf int, diff int64) Candidate {
	return Candidate{ApplicationID: app, Result: Result{Confidence: conf, TimeDiffMinutes: diff}}
}

func TestRankEmptyPool(t *testing.T) {
	out := Rank(nil)
	if out.Decision != DecisionManualRequired || out.Confidence != 0 || len(out.Candidates) != 0 {
		t.Fatalf("expected empty manual outcome got %+v", out)
	}
}

func TestRankAutoAtThreshold(t *testing.T) {
	out := Rank([]Candidate{cand("a", 95, 30), cand("b", 65, 10)})
	if out.Decision != DecisionAuto {
		t.Fatalf("expected auto got %+v", out)
	}
	if len(out.Candidates) != 1 || out.Candidates[0].ApplicationID != "a" {
		t.Fatalf("expected single best candidate a got %+v", out.Candidates)
	}

	out = Rank([]Candidate{cand("a", 80, 30)})
	if out.Decision != DecisionAuto {
		t.Fatalf("80 is the auto threshold, got %+v", out)
	}
}

func TestRankBelowThresholdReturnsReviewList(t *testing.T) {
	cands := []Candidate{
		cand("a", 65, 100), cand("b", 70, 10), cand("c", 60, 5),
		cand("d", 65, 50), cand("e", 60, 1), cand("f", 60, 2),
	}
	out := Rank(cands)
	if out.Decision != DecisionManualRequired {
		t.Fatalf("expected manual got %+v", out)
	}
	if out.Confidence != 70 {
		t.Fatalf("expected best confidence 70 got %d", out.Confidence)
	}
	if len(out.Candidates) != 5 {
		t.Fatalf("expected best + 4 runners-up, got %d", len(out.Candidates))
	}
	if out.Candidates[0].ApplicationID != "b" {
		t.Fatalf("expected b first got %+v", out.Candidates[0])
	}
}

func TestRankTieBrokenBySmallerTimeDiff(t *testing.T) {
	out := Rank([]Candidate{cand("late", 65, 500), cand("early", 65, 20)})
	if out.Candidates[0].ApplicationID != "early" {
		t.Fatalf("expected smaller diff first got %+v", out.Candidates)
	}
}

func TestRankResidualTieKeepsEnumerationOrder(t *testing.T) {
	out := Rank([]Candidate{cand("first", 65, 20), cand("second", 65, 20)})
	if out.Candidates[0].ApplicationID != "first" || out.Candidates[1].ApplicationID != "second" {
		t.Fatalf("expected stable enumeration order got %+v", out.Candidates)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	in := []Candidate{cand("a", 60, 5), cand("b", 70, 5)}
	Rank(in)
	if in[0].ApplicationID != "a" {
		t.Fatalf("input reordered: %+v", in)
	}
}
