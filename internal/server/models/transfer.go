package models

import "time"

// TransferStatus progresses one-way: offered -> paid -> acknowledged.
// No path skips paid.
type TransferStatus string

const (
	TransferStatusOffered      TransferStatus = "offered"
	TransferStatusPaid         TransferStatus = "paid"
	TransferStatusAcknowledged TransferStatus = "acknowledged"
)

// Transfer records an offer/sale of download rights from one identity to
// another. The transfer core reads it for access decisions and performs a
// single mutation: the receipt-driven advance paid -> acknowledged.
type Transfer struct {
	ID           string
	ProductID    string
	FromIdentity string
	ToIdentity   string
	// Price is the agreed amount in minor units. Settlement itself is
	// handled elsewhere; this core only reads the resulting status.
	Price  int64
	Status TransferStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeliveryReceipt confirms the recipient obtained the content of a paid
// transfer. At most one receipt exists per transfer.
type DeliveryReceipt struct {
	ID         string
	TransferID string
	// Identity is the recipient who acknowledged delivery.
	Identity   string
	ReceivedAt time.Time
}
