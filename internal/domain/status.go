package domain

// LinkStatus is the outcome of the last reachability check of a bookmark.
type LinkStatus string

const (
	LinkUnknown LinkStatus = "unknown"
	LinkValid   LinkStatus = "valid"
	LinkDead    LinkStatus = "dead"
)

// ParseLinkStatus maps a stored value back to a LinkStatus.
// Anything unrecognised is reported as LinkUnknown.
func ParseLinkStatus(s string) LinkStatus {
	switch LinkStatus(s) {
	case LinkValid:
		return LinkValid
	case LinkDead:
		return LinkDead
	default:
		return LinkUnknown
	}
}

// StatusForCode classifies the final HTTP status of a probe. Success and
// redirect codes are valid; everything else, including 1xx, is dead.
func StatusForCode(code int) LinkStatus {
	if code >= 200 && code < 400 {
		return LinkValid
	}
	return LinkDead
}
