package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LegType enumerates the two independently confirmed payment legs.
type LegType string

const (
	LegInitiate  LegType = "initiate"
	LegProcessor LegType = "processor"
)

// Complement returns the other leg type.
func (t LegType) Complement() LegType {
	if t == LegInitiate {
		return LegProcessor
	}
	return LegInitiate
}

func (t LegType) Valid() bool {
	return t == LegInitiate || t == LegProcessor
}

// LegOutcome records what the reconciler did with an appended leg.
type LegOutcome string

const (
	LegOutcomeCreated   LegOutcome = "created"
	LegOutcomeCompleted LegOutcome = "completed"
	LegOutcomeDuplicate LegOutcome = "duplicate"
	LegOutcomeConflict  LegOutcome = "conflict"
	LegOutcomeAnomaly   LegOutcome = "anomaly"
)

// LegEvent is the immutable fact of one leg confirmation delivery.
type LegEvent struct {
	LegType  LegType
	LegTxID  string
	Counter  int64
	UserID   string
	GalaxyID string
	IssueID  string

	// Processor legs only; authoritative for the donation amounts.
	SpendUSD  decimal.Decimal
	Sunshines float64
	Memo      string

	// Initiate legs only; compared against the processor figures.
	ClaimedSpendUSD  *decimal.Decimal
	ClaimedSunshines *float64

	ReceivedAt   time.Time
	ReconciledAt *time.Time
	Outcome      LegOutcome
}

// Key returns the correlation slot the leg targets.
func (e LegEvent) Key() SlotKey {
	return SlotKey{UserID: e.UserID, GalaxyID: e.GalaxyID, Counter: e.Counter}
}

// SamePayload reports whether a redelivery carries the payload already recorded.
func (e LegEvent) SamePayload(other LegEvent) bool {
	if e.LegType != other.LegType || e.LegTxID != other.LegTxID || e.Counter != other.Counter ||
		e.UserID != other.UserID || e.GalaxyID != other.GalaxyID || e.IssueID != other.IssueID {
		return false
	}
	if e.LegType == LegProcessor {
		return e.SpendUSD.Equal(other.SpendUSD) && e.Sunshines == other.Sunshines && e.Memo == other.Memo
	}
	return sameDecimal(e.ClaimedSpendUSD, other.ClaimedSpendUSD) && sameFloat(e.ClaimedSunshines, other.ClaimedSunshines)
}

func sameDecimal(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// InitiateLeg is the payload delivered by the initiation service.
type InitiateLeg struct {
	UserID           string
	GalaxyID         string
	Counter          int64
	TxID             string
	IssueID          string
	ClaimedSpendUSD  *decimal.Decimal
	ClaimedSunshines *float64
}

// Validate rejects malformed payloads before they reach the ledger.
func (l InitiateLeg) Validate() error {
	if err := validateCommon(l.UserID, l.GalaxyID, l.TxID, l.Counter); err != nil {
		return err
	}
	if l.ClaimedSpendUSD != nil {
		if l.ClaimedSpendUSD.IsNegative() {
			return fmt.Errorf("%w: claimed spend must not be negative", ErrInvalidLeg)
		}
		if err := checkUSD("claimed spend", *l.ClaimedSpendUSD); err != nil {
			return err
		}
	}
	if l.ClaimedSunshines != nil && !validAmount(*l.ClaimedSunshines) {
		return fmt.Errorf("%w: claimed sunshines must be a positive finite number", ErrInvalidLeg)
	}
	return nil
}

// Event converts the payload into a ledger fact.
func (l InitiateLeg) Event(receivedAt time.Time) LegEvent {
	return LegEvent{
		LegType:          LegInitiate,
		LegTxID:          strings.TrimSpace(l.TxID),
		Counter:          l.Counter,
		UserID:           strings.TrimSpace(l.UserID),
		GalaxyID:         strings.TrimSpace(l.GalaxyID),
		IssueID:          strings.TrimSpace(l.IssueID),
		ClaimedSpendUSD:  l.ClaimedSpendUSD,
		ClaimedSunshines: l.ClaimedSunshines,
		ReceivedAt:       receivedAt,
	}
}

// ProcessorLeg is the payload delivered by the payment processor callback.
type ProcessorLeg struct {
	UserID    string
	GalaxyID  string
	Counter   int64
	TxID      string
	SpendUSD  decimal.Decimal
	Sunshines float64
	Memo      string
	IssueID   string
}

// Validate rejects malformed payloads before they reach the ledger.
func (l ProcessorLeg) Validate() error {
	if err := validateCommon(l.UserID, l.GalaxyID, l.TxID, l.Counter); err != nil {
		return err
	}
	if !l.SpendUSD.IsPositive() {
		return fmt.Errorf("%w: spend usd amount must be positive", ErrInvalidLeg)
	}
	if err := checkUSD("spend usd amount", l.SpendUSD); err != nil {
		return err
	}
	if !validAmount(l.Sunshines) {
		return fmt.Errorf("%w: sunshines amount must be a positive finite number", ErrInvalidLeg)
	}
	return nil
}

// Event converts the payload into a ledger fact.
func (l ProcessorLeg) Event(receivedAt time.Time) LegEvent {
	return LegEvent{
		LegType:    LegProcessor,
		LegTxID:    strings.TrimSpace(l.TxID),
		Counter:    l.Counter,
		UserID:     strings.TrimSpace(l.UserID),
		GalaxyID:   strings.TrimSpace(l.GalaxyID),
		IssueID:    strings.TrimSpace(l.IssueID),
		SpendUSD:   l.SpendUSD,
		Sunshines:  l.Sunshines,
		Memo:       l.Memo,
		ReceivedAt: receivedAt,
	}
}

func validateCommon(userID, galaxyID, txID string, counter int64) error {
	switch {
	case strings.TrimSpace(userID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidLeg)
	case strings.TrimSpace(galaxyID) == "":
		return fmt.Errorf("%w: galaxy id is required", ErrInvalidLeg)
	case strings.TrimSpace(txID) == "":
		return fmt.Errorf("%w: tx id is required", ErrInvalidLeg)
	case counter < 0:
		return fmt.Errorf("%w: counter must not be negative", ErrInvalidLeg)
	}
	return nil
}

// USD amounts are stored as numeric(20,6): at most 14 integer digits and
// 6 fractional digits. Anything finer would be rounded on write and no
// longer match its own redelivery.
const usdScale = 6

var maxUSD = decimal.New(1, 20-usdScale)

func checkUSD(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(usdScale)) {
		return fmt.Errorf("%w: %s allows at most %d decimal places", ErrInvalidLeg, field, usdScale)
	}
	if d.Abs().GreaterThanOrEqual(maxUSD) {
		return fmt.Errorf("%w: %s must be below %s", ErrInvalidLeg, field, maxUSD.String())
	}
	return nil
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
