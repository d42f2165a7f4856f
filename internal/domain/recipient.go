package domain

import "time"

// RecipientStatus tracks a recipient's verification state. Status is
// mutated only by the external compliance process.
type RecipientStatus string

const (
	StatusVerified   RecipientStatus = "verified"
	StatusUnverified RecipientStatus = "unverified"
	StatusInReview   RecipientStatus = "in_review"
	StatusDisabled   RecipientStatus = "disabled"
)

// VerificationState enumerates the stages of a compliance check.
type VerificationState string

const (
	VerificationVerified    VerificationState = "verified"
	VerificationUnsubmitted VerificationState = "unsubmitted"
	VerificationPending     VerificationState = "pending"
)

// OFACState enumerates sanctions-screening outcomes.
type OFACState string

const (
	OFACUnflagged OFACState = "unflagged"
	OFACFlagged   OFACState = "flagged"
	OFACPending   OFACState = "pending"
)

// Phone captures a phone number with its country code.
type Phone struct {
	CountryCode string
	Number      string
}

// Compliance groups the verification flags collected for a recipient.
type Compliance struct {
	TaxIDCollected       bool
	TaxIDVerification    VerificationState
	AddressCollected     bool
	DateOfBirthCollected bool
	IDVerified           bool
	Flagged              bool
	OFAC                 bool
	OFACStatus           OFACState
}

// Recipient is an entity eligible to receive payouts. The ID is
// immutable for the recipient's lifetime and the recipient exclusively
// owns its Wallet.
type Recipient struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Phone         Phone
	DefaultMethod string
	Wallet        Wallet
	Status        RecipientStatus
	Compliance    Compliance
	Metadata      map[string]string
	CreatedAt     time.Time
}

// ValidRecipientStatus reports whether s is one of the known statuses.
func ValidRecipientStatus(s RecipientStatus) bool {
	switch s {
	case StatusVerified, StatusUnverified, StatusInReview, StatusDisabled:
		return true
	}
	return false
}
