package auth

import "context"

// CredentialProvider supplies the secrets the authorization handshake asks
// for. Implementations may block on user input; they must honor ctx and
// return its error when interrupted.
type CredentialProvider interface {
	// APICredentials returns the application identity (api id and hash)
	// when the configuration carries none. It is consulted at most once
	// per flow.
	APICredentials(ctx context.Context) (apiID int32, apiHash string, err error)

	// PhoneNumber returns the account's phone number in international
	// format.
	PhoneNumber(ctx context.Context) (string, error)

	// Code returns the one-time code delivered by SMS or another device.
	Code(ctx context.Context) (string, error)

	// Password returns the two-step verification password.
	Password(ctx context.Context) (string, error)

	// EmailAddress returns the login email address.
	EmailAddress(ctx context.Context) (string, error)

	// EmailCode returns the one-time code delivered to the login email.
	EmailCode(ctx context.Context) (string, error)

	// Name returns the first and last name for registering a new account.
	Name(ctx context.Context) (first, last string, err error)
}

// Parameters carries the client identity and storage settings sent with
// setTdlibParameters.
type Parameters struct {
	APIID              int32
	APIHash            string
	DatabaseDirectory  string
	UseMessageDatabase bool
	UseSecretChats     bool
	SystemLanguageCode string
	DeviceModel        string
	ApplicationVersion string
}
