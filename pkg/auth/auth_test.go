package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shared-object/simpletd/pkg/client"
	"github.com/shared-object/simpletd/pkg/engine/enginetest"
	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// stubProvider returns canned credentials and records which prompts ran.
type stubProvider struct {
	apiID   int32
	apiHash string
	phone   string
	codes   []string
	pass    string
	email   string
	emCode  string
	first   string
	last    string

	apiCalls  int
	codeCalls int

	blockPhone bool // when set, PhoneNumber blocks until ctx is done
}

func (p *stubProvider) APICredentials(context.Context) (int32, string, error) {
	p.apiCalls++
	return p.apiID, p.apiHash, nil
}

func (p *stubProvider) PhoneNumber(ctx context.Context) (string, error) {
	if p.blockPhone {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.phone, nil
}

func (p *stubProvider) Code(context.Context) (string, error) {
	code := p.codes[min(p.codeCalls, len(p.codes)-1)]
	p.codeCalls++
	return code, nil
}

func (p *stubProvider) Password(context.Context) (string, error)     { return p.pass, nil }
func (p *stubProvider) EmailAddress(context.Context) (string, error) { return p.email, nil }
func (p *stubProvider) EmailCode(context.Context) (string, error)    { return p.emCode, nil }
func (p *stubProvider) Name(context.Context) (string, string, error) {
	return p.first, p.last, nil
}

func authState(tag string) tdmsg.Message {
	return tdmsg.New(updateAuthorizationState, map[string]any{
		"authorization_state": map[string]any{tdmsg.TypeField: tag},
	})
}

func newTestFlow(t *testing.T, creds CredentialProvider, params Parameters, opts Options) (*Flow, *enginetest.Fake) {
	t.Helper()

	fake := enginetest.New()
	c, err := client.New(fake, client.Options{PollTimeout: 10 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	if opts.PollTimeout == 0 {
		opts.PollTimeout = 50 * time.Millisecond
	}
	return NewFlow(c, creds, params, opts), fake
}

func sentTypes(fake *enginetest.Fake) []string {
	sent := fake.Sent()
	types := make([]string, len(sent))
	for i, m := range sent {
		types[i] = m.Type()
	}
	return types
}

func TestRun_PhoneFlow(t *testing.T) {
	creds := &stubProvider{phone: "+15550100"}
	params := Parameters{
		APIID:              94575,
		APIHash:            "a3406de8d171bb422bb6ddf3bbd800e2",
		DatabaseDirectory:  t.TempDir(),
		UseMessageDatabase: true,
		SystemLanguageCode: "en",
		DeviceModel:        "simpletd",
		ApplicationVersion: "1.1",
	}

	flow, fake := newTestFlow(t, creds, params, Options{})
	fake.OnSend = func(req tdmsg.Message) {
		switch req.Type() {
		case "getOption":
			fake.Enqueue(authState(StateWaitTdlibParameters))
		case "setTdlibParameters":
			fake.Enqueue(authState(StateWaitPhoneNumber))
		case "setAuthenticationPhoneNumber":
			fake.Enqueue(authState(StateReady))
		}
	}

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)

	require.Equal(t, []string{"getOption", "setTdlibParameters", "setAuthenticationPhoneNumber"}, sentTypes(fake))

	sent := fake.Sent()
	assert.EqualValues(t, 94575, sent[1]["api_id"])
	assert.Equal(t, params.APIHash, sent[1].String("api_hash"))
	assert.Equal(t, params.DatabaseDirectory, sent[1].String("database_directory"))
	assert.Equal(t, "+15550100", sent[2].String("phone_number"))

	// Configured identity means the provider is never asked for one.
	assert.Zero(t, creds.apiCalls)
}

func TestRun_PremiumPurchaseIsUnsupported(t *testing.T) {
	flow, fake := newTestFlow(t, &stubProvider{}, Parameters{APIID: 1, APIHash: "h"}, Options{})
	fake.Enqueue(authState(StateWaitPremiumPurchase))

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnsupported, outcome)

	// Nothing beyond the initial nudge goes out.
	assert.Equal(t, []string{"getOption"}, sentTypes(fake))
}

func TestRun_Closed(t *testing.T) {
	flow, fake := newTestFlow(t, &stubProvider{}, Parameters{APIID: 1, APIHash: "h"}, Options{})
	fake.Enqueue(authState(StateClosed))

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeClosed, outcome)
}

func TestRun_EmailBranch(t *testing.T) {
	creds := &stubProvider{email: "user@example.com", emCode: "654321"}
	flow, fake := newTestFlow(t, creds, Parameters{APIID: 1, APIHash: "h"}, Options{})
	fake.OnSend = func(req tdmsg.Message) {
		switch req.Type() {
		case "getOption":
			fake.Enqueue(authState(StateWaitEmailAddress))
		case "setAuthenticationEmailAddress":
			fake.Enqueue(authState(StateWaitEmailCode))
		case "checkAuthenticationEmailCode":
			fake.Enqueue(authState(StateReady))
		}
	}

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)

	sent := fake.Sent()
	assert.Equal(t, "user@example.com", sent[1].String("email_address"))

	code := sent[2].Object("code")
	require.NotNil(t, code)
	assert.Equal(t, "emailAddressAuthenticationCode", code.Type())
	assert.Equal(t, "654321", code.String("code"))
}

func TestRun_RegistrationAndPasswordBranch(t *testing.T) {
	creds := &stubProvider{first: "Ada", last: "Lovelace", pass: "hunter2"}
	flow, fake := newTestFlow(t, creds, Parameters{APIID: 1, APIHash: "h"}, Options{})
	fake.OnSend = func(req tdmsg.Message) {
		switch req.Type() {
		case "getOption":
			fake.Enqueue(authState(StateWaitRegistration))
		case "registerUser":
			fake.Enqueue(authState(StateWaitPassword))
		case "checkAuthenticationPassword":
			fake.Enqueue(authState(StateReady))
		}
	}

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)

	sent := fake.Sent()
	assert.Equal(t, "Ada", sent[1].String("first_name"))
	assert.Equal(t, "Lovelace", sent[1].String("last_name"))
	assert.Equal(t, "hunter2", sent[2].String("password"))
}

func TestRun_MissingIdentityPromptsProvider(t *testing.T) {
	creds := &stubProvider{apiID: 424242, apiHash: "prompted", phone: "+15550100"}
	flow, fake := newTestFlow(t, creds, Parameters{}, Options{})
	fake.OnSend = func(req tdmsg.Message) {
		switch req.Type() {
		case "getOption":
			fake.Enqueue(authState(StateWaitTdlibParameters))
		case "setTdlibParameters":
			fake.Enqueue(authState(StateReady))
		}
	}

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)

	assert.Equal(t, 1, creds.apiCalls)
	sent := fake.Sent()
	assert.EqualValues(t, 424242, sent[1]["api_id"])
	assert.Equal(t, "prompted", sent[1].String("api_hash"))
}

func TestRun_RejectedCodeLoopsOnReemittedState(t *testing.T) {
	creds := &stubProvider{codes: []string{"000000", "123456"}}

	var rejected []tdmsg.Message
	flow, fake := newTestFlow(t, creds, Parameters{APIID: 1, APIHash: "h"}, Options{
		Notify: func(m tdmsg.Message) { rejected = append(rejected, m) },
	})

	attempts := 0
	fake.OnSend = func(req tdmsg.Message) {
		switch req.Type() {
		case "getOption":
			fake.Enqueue(authState(StateWaitCode))
		case "checkAuthenticationCode":
			attempts++
			if attempts == 1 {
				fake.Enqueue(tdmsg.New("error", map[string]any{
					"code":    float64(400),
					"message": "PHONE_CODE_INVALID",
				}))
				fake.Enqueue(authState(StateWaitCode))
				return
			}
			fake.Enqueue(authState(StateReady))
		}
	}

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)

	assert.Equal(t, 2, creds.codeCalls)
	require.Len(t, rejected, 1)
	assert.Equal(t, "PHONE_CODE_INVALID", rejected[0].String("message"))

	sent := fake.Sent()
	assert.Equal(t, "000000", sent[1].String("code"))
	assert.Equal(t, "123456", sent[2].String("code"))
}

func TestRun_SkipsMalformedEvents(t *testing.T) {
	flow, fake := newTestFlow(t, &stubProvider{}, Parameters{APIID: 1, APIHash: "h"}, Options{})
	fake.EnqueueRaw([]byte("%%% not json %%%"))
	fake.Enqueue(authState(StateReady))

	outcome, err := flow.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)
}

func TestRun_CancelDuringPrompt(t *testing.T) {
	creds := &stubProvider{blockPhone: true}
	flow, fake := newTestFlow(t, creds, Parameters{APIID: 1, APIHash: "h"}, Options{})
	fake.Enqueue(authState(StateWaitPhoneNumber))

	ctx, cancel := context.WithCancel(t.Context())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := flow.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
