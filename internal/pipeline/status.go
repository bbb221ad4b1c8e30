package pipeline

import "stopsale/internal"

// Email-level statuses derived from row statuses. The workflow layer owns
// the transitions; this package only provides the aggregation.
const (
	EmailStatusNew       = "new"
	EmailStatusProcessed = "processed"
	EmailStatusBlocked   = "blocked"
	EmailStatusApproved  = "approved"
	EmailStatusRejected  = "rejected"
	EmailStatusMixed     = "mixed"
)

func isApprovedFamily(s internal.RowStatus) bool {
	switch s {
	case internal.StatusApproved, internal.StatusSentToRobot, internal.StatusRobotProcessed:
		return true
	}
	return false
}

func isRejectedFamily(s internal.RowStatus) bool {
	switch s {
	case internal.StatusRejected, internal.StatusRejectedHotel, internal.StatusRejectedRoom, internal.StatusBlockedHotelMissing:
		return true
	}
	return false
}

// IsTerminal reports whether a row status is final. Pending and
// *_not_found rows still need a human or another resolution pass.
func IsTerminal(s internal.RowStatus) bool {
	return isApprovedFamily(s) || isRejectedFamily(s)
}

// ReduceEmailStatus derives an email's status from its row statuses:
// all approved-family rows give approved, all rejected-family rows give
// rejected, anything else is mixed. An email with no rows stays new.
func ReduceEmailStatus(statuses []internal.RowStatus) string {
	if len(statuses) == 0 {
		return EmailStatusNew
	}

	allApproved := true
	allRejected := true
	for _, s := range statuses {
		if !isApprovedFamily(s) {
			allApproved = false
		}
		if !isRejectedFamily(s) {
			allRejected = false
		}
	}

	switch {
	case allApproved:
		return EmailStatusApproved
	case allRejected:
		return EmailStatusRejected
	default:
		return EmailStatusMixed
	}
}
