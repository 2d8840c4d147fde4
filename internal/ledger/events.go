package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"solarforge/internal/domain"
)

func newOutboxEvent(id, eventType, aggregateType, aggregateID string, payload any, at time.Time) (domain.OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.OutboxEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return domain.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       raw,
		Status:        domain.OutboxPending,
		CreatedAt:     at,
	}, nil
}

func anomalyEvent(id string, a domain.Anomaly) (domain.OutboxEvent, error) {
	return newOutboxEvent(id, domain.EventCorrelationAnomaly, domain.AggregateAnomaly, a.ID, domain.AnomalyPayload{
		AnomalyID:  a.ID,
		Kind:       string(a.Kind),
		UserID:     a.UserID,
		GalaxyID:   a.GalaxyID,
		Counter:    a.Counter,
		LegType:    string(a.LegType),
		LegTxID:    a.LegTxID,
		DonationID: a.DonationID,
		Detail:     a.Detail,
	}, a.DetectedAt)
}
