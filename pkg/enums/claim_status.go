package enums

import "fmt"

// ClaimStatus is the status written on a claim record, or inferred for a missing one.
type ClaimStatus string

const (
	// ClaimStatusToClaim is never stored; it is reported when no claim record exists.
	ClaimStatusToClaim ClaimStatus = "To Claim"
	ClaimStatusClaimed ClaimStatus = "Claimed"

	// ClaimStatusApproved and ClaimStatusPending are counted by the resident statistics
	// but nothing in the ledger writes them. They stay unreachable until an approval
	// step exists.
	ClaimStatusApproved ClaimStatus = "Approved"
	ClaimStatusPending  ClaimStatus = "Pending"
)

var storedClaimStatuses = []ClaimStatus{
	ClaimStatusClaimed,
	ClaimStatusApproved,
	ClaimStatusPending,
}

// String implements fmt.Stringer.
func (s ClaimStatus) String() string {
	return string(s)
}

// IsValid reports whether the value may appear on a stored claim record.
func (s ClaimStatus) IsValid() bool {
	for _, candidate := range storedClaimStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseClaimStatus converts raw input into a stored ClaimStatus.
func ParseClaimStatus(value string) (ClaimStatus, error) {
	for _, candidate := range storedClaimStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid claim status %q", value)
}
