package domain

import "time"

// AnomalyKind classifies a correlation anomaly.
type AnomalyKind string

const (
	// AnomalyCompletedSlotMismatch: a leg names a completed counter but carries a different tx id.
	AnomalyCompletedSlotMismatch AnomalyKind = "completed_slot_mismatch"
	AnomalyAmountMismatch        AnomalyKind = "amount_mismatch"
	AnomalyIssueMismatch         AnomalyKind = "issue_mismatch"
	// AnomalyLegPayloadMismatch: a redelivered tx id arrived with a different payload.
	AnomalyLegPayloadMismatch AnomalyKind = "leg_payload_mismatch"
)

// Anomaly is an audit record of a correlation integrity problem.
type Anomaly struct {
	ID         string
	Kind       AnomalyKind
	UserID     string
	GalaxyID   string
	Counter    int64
	LegType    LegType
	LegTxID    string
	DonationID string
	Detail     string
	DetectedAt time.Time
}
