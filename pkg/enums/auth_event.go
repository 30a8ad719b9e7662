package enums

// AuthEventType enumerates identity transitions observed by the cart layer.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "signed_in"
	AuthEventSignedOut      AuthEventType = "signed_out"
	AuthEventTokenRefreshed AuthEventType = "token_refreshed"
)

// IsValid reports whether the value is a known AuthEventType.
func (a AuthEventType) IsValid() bool {
	switch a {
	case AuthEventSignedIn, AuthEventSignedOut, AuthEventTokenRefreshed:
		return true
	}
	return false
}
