package services

import (
	"context"
	"strings"

	"busticket/internal/domain"
	"busticket/internal/domain/models"

	"github.com/google/uuid"
)

// ApprovingGateway accepts every positive charge. It stands in for a real
// processor and gives each charge a unique reference.
type ApprovingGateway struct{}

func (ApprovingGateway) Charge(ctx context.Context, req models.PaymentRequest) (models.PaymentReceipt, error) {
	if err := ctx.Err(); err != nil {
		return models.PaymentReceipt{}, err
	}
	if req.AmountCents <= 0 {
		return models.PaymentReceipt{}, domain.PaymentError{Msg: "amount must be positive"}
	}
	ref := "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return models.PaymentReceipt{Reference: ref, AmountCents: req.AmountCents}, nil
}

func (ApprovingGateway) Refund(ctx context.Context, _ models.PaymentReceipt) error {
	return ctx.Err()
}
