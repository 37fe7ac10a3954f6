package models

import "time"

// SellerApprovalStatus is the lifecycle state of a seller application.
type SellerApprovalStatus string

const (
	SellerPending  SellerApprovalStatus = "PENDING"
	SellerApproved SellerApprovalStatus = "APPROVED"
	SellerRejected SellerApprovalStatus = "REJECTED"
)

type SellerProfile struct {
	ID         int64
	UserID     int64
	ShopName   string
	Phone      string
	Address    string
	Category   string
	Status     SellerApprovalStatus
	ApprovedAt *time.Time
	CreatedAt  time.Time
}
