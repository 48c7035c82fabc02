package scoring

import (
	"sort"

	"github.com/OFFIS-RIT/ris/pkg/common"
)

// Reliability combines the two structural scores: σ·CSSM − μ·FSCM.
func Reliability(cssm, fscm float64, p Params) float64 {
	return p.Sigma*cssm - p.Mu*fscm
}

// Accept reports whether ris clears the threshold. Equality rejects.
func Accept(ris float64, p Params) bool {
	return ris > p.Theta
}

// SortByRIS orders records by RIS descending, keeping input order for ties.
func SortByRIS(records []common.ScoreRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].RIS > records[j].RIS
	})
}

// Rescore recomputes RIS and the decision of existing records under new
// weights. CSSM and FSCM are kept. The result is sorted by RIS.
func Rescore(records []common.ScoreRecord, p Params) []common.ScoreRecord {
	out := make([]common.ScoreRecord, len(records))
	for i, rec := range records {
		rec.RIS = Reliability(rec.CSSM, rec.FSCM, p)
		rec.Accepted = Accept(rec.RIS, p)
		out[i] = rec
	}
	SortByRIS(out)
	return out
}

// Suppression summarizes how a threshold splits flagged and unflagged
// records. A record is suppressed when RIS <= θ.
type Suppression struct {
	Params              Params  `json:"params"`
	Flagged             int     `json:"flagged"`
	FlaggedSuppressed   int     `json:"flagged_suppressed"`
	Unflagged           int     `json:"unflagged"`
	UnflaggedSuppressed int     `json:"unflagged_suppressed"`
	FlaggedRatio        float64 `json:"flagged_ratio"`
	UnflaggedRatio      float64 `json:"unflagged_ratio"`
}

// FlagPositive is the fp value marking a known false positive.
const FlagPositive = "1"

// Summarize counts suppressed records per fp flag. Ratios are 0 for an
// empty group.
func Summarize(records []common.ScoreRecord, p Params) Suppression {
	s := Suppression{Params: p}
	for _, rec := range records {
		suppressed := !Accept(rec.RIS, p)
		if rec.FP == FlagPositive {
			s.Flagged++
			if suppressed {
				s.FlaggedSuppressed++
			}
			continue
		}
		s.Unflagged++
		if suppressed {
			s.UnflaggedSuppressed++
		}
	}
	if s.Flagged > 0 {
		s.FlaggedRatio = float64(s.FlaggedSuppressed) / float64(s.Flagged)
	}
	if s.Unflagged > 0 {
		s.UnflaggedRatio = float64(s.UnflaggedSuppressed) / float64(s.Unflagged)
	}
	return s
}
