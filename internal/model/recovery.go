package model

import "time"

// Recovery records a claim that an item has been recovered. The item's
// descriptive fields and owner identity are snapshotted at claim time so the
// record survives later item mutation.
type Recovery struct {
	ID     string `json:"id"`
	ItemID string `json:"itemId"`

	// Snapshot of the item at claim time.
	PostType    string `json:"postType"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Location    string `json:"location,omitempty"`
	Date        string `json:"date,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`

	// Snapshot of the original owner.
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail"`

	// Claimant identity.
	RecoveredByID    int64  `json:"recoveredById"`
	RecoveredByName  string `json:"recoveredByName"`
	RecoveredByEmail string `json:"recoveredByEmail"`
	RecoveredByPhoto string `json:"recoveredByPhoto,omitempty"`

	RecoveredLocation string    `json:"recoveredLocation"`
	RecoveredDate     string    `json:"recoveredDate"`
	Notes             string    `json:"notes,omitempty"`
	RecoveryStatus    string    `json:"recoveryStatus"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Recovery statuses.
const (
	RecoveryStatusPending   = "pending"
	RecoveryStatusCompleted = "completed"
	RecoveryStatusCancelled = "cancelled"
)

// ValidRecoveryStatus reports whether s is one of the accepted recovery statuses.
func ValidRecoveryStatus(s string) bool {
	return s == RecoveryStatusPending || s == RecoveryStatusCompleted || s == RecoveryStatusCancelled
}
