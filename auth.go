package pagou

import "encoding/base64"

// AuthScheme selects how the API credential is presented to the server.
type AuthScheme string

const (
	// AuthBearer sends "Authorization: Bearer <key>". This is the default.
	AuthBearer AuthScheme = "bearer"
	// AuthBasic sends "Authorization: Basic base64(<key>:x)", the key acting
	// as the username with the fixed password "x".
	AuthBasic AuthScheme = "basic"
	// AuthAPIKeyHeader sends the raw key in a dedicated header
	// (default "apikey", configurable via AuthStrategy.HeaderName).
	AuthAPIKeyHeader AuthScheme = "api_key_header"
)

const defaultAPIKeyHeader = "apikey"

// AuthStrategy produces the authentication header for a configured scheme.
// It is a pure function of its configuration; a malformed credential is the
// caller's responsibility.
type AuthStrategy struct {
	Scheme AuthScheme
	// HeaderName overrides the header used by AuthAPIKeyHeader.
	HeaderName string
}

// Header returns the header name and value carrying the credential.
func (a AuthStrategy) Header(credential string) (name, value string) {
	switch a.Scheme {
	case AuthBasic:
		return "Authorization", "Basic " + base64.StdEncoding.EncodeToString([]byte(credential+":x"))
	case AuthAPIKeyHeader:
		name = a.HeaderName
		if name == "" {
			name = defaultAPIKeyHeader
		}
		return name, credential
	default:
		return "Authorization", "Bearer " + credential
	}
}
