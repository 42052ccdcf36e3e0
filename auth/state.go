package auth

// State is the credential state of a client's token store
type State int

const (
	// StateNoToken means nothing is stored; authorization is required
	StateNoToken State = iota
	// StateValidToken means a usable access token is stored
	StateValidToken
	// StateExpiredWithRefresh means the access token expired but can be refreshed
	StateExpiredWithRefresh
	// StateExpiredNoRefresh means the access token expired and cannot be refreshed
	StateExpiredNoRefresh
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateValidToken:
		return "valid_token"
	case StateExpiredWithRefresh:
		return "expired_with_refresh"
	case StateExpiredNoRefresh:
		return "expired_no_refresh"
	default:
		return "unknown"
	}
}
