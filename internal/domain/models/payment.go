package models

// PaymentRequest is what the coordinator asks a gateway to charge.
type PaymentRequest struct {
	UserID      int64
	ScheduleID  int64
	AmountCents int64
	Method      string
	Reference   string
}

// PaymentReceipt identifies a successful charge so it can be refunded.
type PaymentReceipt struct {
	Reference   string
	AmountCents int64
}
