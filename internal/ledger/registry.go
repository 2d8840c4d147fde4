package ledger

import (
	"context"
	"fmt"

	"solarforge/internal/domain"
)

// SlotState classifies a leg against the donation occupying its correlation key.
type SlotState int

const (
	// SlotFresh: nothing is live on the key, the leg opens a new donation.
	SlotFresh SlotState = iota
	// SlotComplement: a live donation is waiting for exactly this leg type.
	SlotComplement
	// SlotDuplicate: the leg is already attached to a donation.
	SlotDuplicate
	// SlotSettled: the key's donation completed with a different tx id.
	SlotSettled
)

func (s SlotState) String() string {
	switch s {
	case SlotFresh:
		return "fresh"
	case SlotComplement:
		return "complement"
	case SlotDuplicate:
		return "duplicate"
	case SlotSettled:
		return "settled"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// Slot is the result of a reservation. Donation is nil only for SlotFresh.
type Slot struct {
	State    SlotState
	Donation *domain.Donation
}

// Reserve looks up the slot a leg targets. It must be called while the
// key's slot is held. A live donation that already carries a different tx
// id for the same leg type yields ErrCorrelationConflict together with that
// donation.
func Reserve(ctx context.Context, tx domain.SlotTx, ev domain.LegEvent) (Slot, error) {
	attached, err := tx.DonationByLeg(ctx, ev.LegType, ev.LegTxID)
	if err != nil {
		return Slot{}, err
	}
	if attached != nil {
		return Slot{State: SlotDuplicate, Donation: attached}, nil
	}

	live, err := tx.LiveDonation(ctx)
	if err != nil {
		return Slot{}, err
	}
	if live != nil {
		if held := live.TxID(ev.LegType); held != "" {
			return Slot{State: SlotComplement, Donation: live}, fmt.Errorf(
				"%w: slot %s already holds %s tx %q", domain.ErrCorrelationConflict, ev.Key(), ev.LegType, held)
		}
		return Slot{State: SlotComplement, Donation: live}, nil
	}

	done, err := tx.LatestCompleted(ctx)
	if err != nil {
		return Slot{}, err
	}
	if done != nil {
		return Slot{State: SlotSettled, Donation: done}, nil
	}
	return Slot{State: SlotFresh}, nil
}
