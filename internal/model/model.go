package model

import "time"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

func ValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

type Account struct {
	ID           string
	Role         Role
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// Session is an opaque server-side session. At most one session per account
// is valid at a time; issuing a new one deletes the rest.
type Session struct {
	TokenHash  string
	AccountID  string
	Remember   bool
	ExpiresAt  time.Time
	LastUsedAt time.Time
	CreatedAt  time.Time
}

type Device struct {
	ID        string
	AccountID string
	LastLogin time.Time
}

// LoginAttempt is the audit row bumped on every student login attempt,
// regardless of outcome. Keyed by (account, device).
type LoginAttempt struct {
	AccountID string
	DeviceID  string
	Attempts  int64
	LastLogin time.Time
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func ValidPaymentStatus(status PaymentStatus) bool {
	switch status {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	default:
		return false
	}
}

type Order struct {
	Code            string
	AccountID       string
	ServiceCode     string
	TransactionCode string
	Amount          float64
	PaymentStatus   PaymentStatus
	PaidAt          *time.Time
	Notes           string
	CreatedAt       time.Time
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type VoucherScope string

const (
	ScopeAll      VoucherScope = "all"
	ScopeService  VoucherScope = "service"
	ScopeCategory VoucherScope = "category"
)

type Voucher struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue float64
	MaxDiscount   *float64
	MinOrderValue *float64
	Scope         VoucherScope
	TargetCode    *string
	UsageLimit    *int64
	UsedCount     int64
	ValidFrom     time.Time
	ValidUntil    time.Time
	Active        bool
	CreatedAt     time.Time
}

type ServiceCatalogEntry struct {
	Code        string
	Name        string
	Description string
	Category    string
	Price       float64
	Active      bool
}

// WebhookEvent records every received payment webhook and its outcome.
type WebhookEvent struct {
	ID         string
	GatewayID  int64
	Gateway    string
	Outcome    string
	OrderCode  *string
	ReceivedAt time.Time
}
