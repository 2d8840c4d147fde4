package ledger

import (
	"fmt"
	"strings"

	"solarforge/internal/domain"
)

type anomalyDraft struct {
	kind   domain.AnomalyKind
	detail string
}

// mergeLegs builds the completion of a donation from its two legs. The
// processor leg is authoritative for amounts and memo; the issue comes from
// the initiate leg and falls back to the processor's. Disagreements are
// returned as anomaly drafts and never block the merge.
func mergeLegs(initiate, processor domain.LegEvent) (domain.Completion, []anomalyDraft) {
	c := domain.Completion{
		InitiateTxID:    initiate.LegTxID,
		HyperpayTxID:    processor.LegTxID,
		IssueID:         initiate.IssueID,
		SunshinesAmount: processor.Sunshines,
		SpendUSDAmount:  processor.SpendUSD,
		Memo:            processor.Memo,
	}
	if c.IssueID == "" {
		c.IssueID = processor.IssueID
	}

	var drafts []anomalyDraft
	if initiate.IssueID != "" && processor.IssueID != "" && initiate.IssueID != processor.IssueID {
		drafts = append(drafts, anomalyDraft{
			kind:   domain.AnomalyIssueMismatch,
			detail: fmt.Sprintf("initiate issue %q, processor issue %q; kept %q", initiate.IssueID, processor.IssueID, c.IssueID),
		})
	}

	var diffs []string
	if initiate.ClaimedSpendUSD != nil && !initiate.ClaimedSpendUSD.Equal(processor.SpendUSD) {
		diffs = append(diffs, fmt.Sprintf("spend usd claimed %s, processed %s", initiate.ClaimedSpendUSD, processor.SpendUSD))
	}
	if initiate.ClaimedSunshines != nil && *initiate.ClaimedSunshines != processor.Sunshines {
		diffs = append(diffs, fmt.Sprintf("sunshines claimed %g, processed %g", *initiate.ClaimedSunshines, processor.Sunshines))
	}
	if len(diffs) > 0 {
		drafts = append(drafts, anomalyDraft{kind: domain.AnomalyAmountMismatch, detail: strings.Join(diffs, "; ")})
	}
	return c, drafts
}
