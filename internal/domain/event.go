package domain

import (
	"encoding/json"
	"time"
)

// OutboxStatus enumerates relay states of an outbox event.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "PENDING"
	OutboxPublishing OutboxStatus = "PUBLISHING"
	OutboxPublished  OutboxStatus = "PUBLISHED"
	OutboxFailed     OutboxStatus = "FAILED"
)

// Outbound event types.
const (
	EventDonationCompleted  = "donation.completed"
	EventDonationExpired    = "donation.expired"
	EventCorrelationAnomaly = "correlation.anomaly"
)

// Aggregate types used to route outbound events.
const (
	AggregateGalaxy  = "galaxy"
	AggregateAnomaly = "anomaly"
)

// OutboxEvent is a notification persisted with the state change that produced it.
type OutboxEvent struct {
	ID            string
	EventType     string
	AggregateType string
	AggregateID   string
	Payload       json.RawMessage
	Status        OutboxStatus
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// DonationCompletedPayload is published after a reward has been applied.
type DonationCompletedPayload struct {
	DonationID     string  `json:"donation_id"`
	UserID         string  `json:"user_id"`
	GalaxyID       string  `json:"galaxy_id"`
	IssueID        string  `json:"issue_id,omitempty"`
	Sunshines      float64 `json:"sunshines"`
	Stars          float64 `json:"stars"`
	SpendUSDAmount string  `json:"spend_usd_amount"`
}

// DonationExpiredPayload is published when a pending donation times out.
type DonationExpiredPayload struct {
	DonationID string `json:"donation_id"`
	UserID     string `json:"user_id"`
	GalaxyID   string `json:"galaxy_id"`
	Counter    int64  `json:"counter"`
}

// AnomalyPayload is published for every recorded correlation anomaly.
type AnomalyPayload struct {
	AnomalyID  string `json:"anomaly_id"`
	Kind       string `json:"kind"`
	UserID     string `json:"user_id"`
	GalaxyID   string `json:"galaxy_id"`
	Counter    int64  `json:"counter"`
	LegType    string `json:"leg_type"`
	LegTxID    string `json:"leg_tx_id"`
	DonationID string `json:"donation_id,omitempty"`
	Detail     string `json:"detail"`
}
