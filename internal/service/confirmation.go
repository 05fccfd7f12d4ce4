package service

import (
	"context"

	"github.com/sandeepkv93/event-credential-service/internal/observability"
)

// TicketVerifier checks a signed confirmation ticket and returns the count
// the operator agreed to.
type TicketVerifier interface {
	ParseConfirmationTicket(ticket string) (int, error)
}

// TicketConfirmer confirms an issuance over HTTP, where the prompt was shown
// in an earlier request and the operator's answer is the ticket it returned.
type TicketConfirmer struct {
	Ticket   string
	Verifier TicketVerifier
}

func (c TicketConfirmer) Confirm(ctx context.Context, prompt ConfirmationPrompt) (bool, error) {
	if c.Ticket == "" || c.Verifier == nil {
		observability.RecordConfirmationTicketEvent(ctx, "verify", "missing")
		return false, nil
	}
	count, err := c.Verifier.ParseConfirmationTicket(c.Ticket)
	if err != nil {
		observability.RecordConfirmationTicketEvent(ctx, "verify", "invalid")
		return false, nil
	}
	if count != prompt.Count {
		observability.RecordConfirmationTicketEvent(ctx, "verify", "count_mismatch")
		return false, nil
	}
	observability.RecordConfirmationTicketEvent(ctx, "verify", "success")
	return true, nil
}
