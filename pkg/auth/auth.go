// Package auth drives the server-directed authorization handshake. The
// engine owns the authorization state; this package only observes state
// change events and answers each wait state with the request it maps to,
// sourcing secrets from a CredentialProvider.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/shared-object/simpletd/pkg/client"
	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// Authorization state tags the flow reacts to. The server chooses the order;
// the only fixed points are that WaitTdlibParameters comes first and Ready or
// Closed ends the flow.
const (
	StateWaitTdlibParameters = "authorizationStateWaitTdlibParameters"
	StateWaitPhoneNumber     = "authorizationStateWaitPhoneNumber"
	StateWaitEmailAddress    = "authorizationStateWaitEmailAddress"
	StateWaitEmailCode       = "authorizationStateWaitEmailCode"
	StateWaitCode            = "authorizationStateWaitCode"
	StateWaitRegistration    = "authorizationStateWaitRegistration"
	StateWaitPassword        = "authorizationStateWaitPassword"
	StateWaitPremiumPurchase = "authorizationStateWaitPremiumPurchase"
	StateReady               = "authorizationStateReady"
	StateClosed              = "authorizationStateClosed"
)

// updateAuthorizationState tags the push event carrying a state transition.
const updateAuthorizationState = "updateAuthorizationState"

// Outcome is the terminal result of an authorization flow.
type Outcome int

const (
	// OutcomeReady means the client is authorized.
	OutcomeReady Outcome = iota

	// OutcomeClosed means the engine closed the connection before the
	// flow completed.
	OutcomeClosed

	// OutcomeUnsupported means the server demanded a step this client
	// cannot perform (a premium purchase). Not a success and not an
	// error: the flow ends cleanly without authorization.
	OutcomeUnsupported
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeClosed:
		return "closed"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Options configures a Flow.
type Options struct {
	// PollTimeout bounds one wait for the next event. Zero means
	// client.DefaultPollTimeout.
	PollTimeout time.Duration

	// Logger receives flow diagnostics. The zero value logs nothing.
	Logger zerolog.Logger

	// Notify, if set, observes error responses the server sends back for
	// rejected credentials. The flow keeps looping either way; the server
	// re-emits the wait state, which re-prompts the provider.
	Notify func(errResponse tdmsg.Message)
}

// Flow runs the authorization handshake for one client.
type Flow struct {
	client *client.Client
	creds  CredentialProvider
	params Parameters
	opts   Options
}

// NewFlow creates a flow over the given router, credential source, and
// client parameters.
func NewFlow(c *client.Client, creds CredentialProvider, params Parameters, opts Options) *Flow {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = client.DefaultPollTimeout
	}
	return &Flow{client: c, creds: creds, params: params, opts: opts}
}

// Run drives the handshake until a terminal state, consuming authorization
// state events and answering each wait state. It blocks in the provider for
// interactive steps and unwinds with ctx.Err() when interrupted.
func (f *Flow) Run(ctx context.Context) (Outcome, error) {
	// Any request nudges the engine into emitting the first authorization
	// state; ask for the version like every TDLib client does.
	if err := f.client.SendAsync(tdmsg.New("getOption", map[string]any{"name": "version"})); err != nil {
		return 0, err
	}

	for {
		ev, err := f.client.PollEvent(ctx, f.opts.PollTimeout)
		if err != nil {
			var decErr *tdmsg.DecodeError
			if errors.As(err, &decErr) {
				// One malformed message must not abort the
				// handshake.
				f.opts.Logger.Warn().Err(err).Msg("skipping malformed event")
				continue
			}
			return 0, err
		}
		if ev == nil {
			continue
		}

		switch ev.Type() {
		case updateAuthorizationState:
			done, outcome, err := f.handleState(ctx, ev.Object("authorization_state"))
			if err != nil {
				return 0, err
			}
			if done {
				return outcome, nil
			}

		case "error":
			f.opts.Logger.Warn().
				Str("message", ev.String("message")).
				Msg("authorization request rejected")
			if f.opts.Notify != nil {
				f.opts.Notify(ev)
			}

		default:
			f.opts.Logger.Debug().Str("type", ev.Type()).Msg("ignoring update during authorization")
		}
	}
}

// handleState answers one authorization state. done reports a terminal
// state.
func (f *Flow) handleState(ctx context.Context, state tdmsg.Message) (done bool, outcome Outcome, err error) {
	tag := state.Type()
	f.opts.Logger.Debug().Str("state", tag).Msg("authorization state changed")

	switch tag {
	case StateReady:
		return true, OutcomeReady, nil

	case StateClosed:
		return true, OutcomeClosed, nil

	case StateWaitPremiumPurchase:
		return true, OutcomeUnsupported, nil

	case StateWaitTdlibParameters:
		req, err := f.parametersRequest(ctx)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.send(req)

	case StateWaitPhoneNumber:
		phone, err := f.creds.PhoneNumber(ctx)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.send(tdmsg.New("setAuthenticationPhoneNumber", map[string]any{
			"phone_number": phone,
		}))

	case StateWaitEmailAddress:
		email, err := f.creds.EmailAddress(ctx)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.send(tdmsg.New("setAuthenticationEmailAddress", map[string]any{
			"email_address": email,
		}))

	case StateWaitEmailCode:
		code, err := f.creds.EmailCode(ctx)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.send(tdmsg.New("checkAuthenticationEmailCode", map[string]any{
			"code": map[string]any{
				tdmsg.TypeField: "emailAddressAuthenticationCode",
				"code":          code,
			},
		}))

	case StateWaitCode:
		code, err := f.creds.Code(ctx)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.send(tdmsg.New("checkAuthenticationCode", map[string]any{
			"code": code,
		}))

	case StateWaitRegistration:
		first, last, err := f.creds.Name(ctx)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.send(tdmsg.New("registerUser", map[string]any{
			"first_name": first,
			"last_name":  last,
		}))

	case StateWaitPassword:
		password, err := f.creds.Password(ctx)
		if err != nil {
			return false, 0, err
		}
		return false, 0, f.send(tdmsg.New("checkAuthenticationPassword", map[string]any{
			"password": password,
		}))

	default:
		f.opts.Logger.Warn().Str("state", tag).Msg("unknown authorization state; waiting for the next one")
		return false, 0, nil
	}
}

// parametersRequest builds setTdlibParameters, obtaining the application
// identity from the provider when the configured parameters carry none.
func (f *Flow) parametersRequest(ctx context.Context) (tdmsg.Message, error) {
	apiID, apiHash := f.params.APIID, f.params.APIHash
	if apiID == 0 || apiHash == "" {
		var err error
		apiID, apiHash, err = f.creds.APICredentials(ctx)
		if err != nil {
			return nil, err
		}
	}

	return tdmsg.New("setTdlibParameters", map[string]any{
		"database_directory":   f.params.DatabaseDirectory,
		"use_message_database": f.params.UseMessageDatabase,
		"use_secret_chats":     f.params.UseSecretChats,
		"api_id":               apiID,
		"api_hash":             apiHash,
		"system_language_code": f.params.SystemLanguageCode,
		"device_model":         f.params.DeviceModel,
		"application_version":  f.params.ApplicationVersion,
	}), nil
}

func (f *Flow) send(req tdmsg.Message) error {
	f.opts.Logger.Debug().Str("type", req.Type()).Msg("answering authorization state")
	return f.client.SendAsync(req)
}
