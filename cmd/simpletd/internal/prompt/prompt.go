// Package prompt implements the interactive credential provider: each
// secret the authorization flow asks for becomes a terminal form.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// Provider prompts on the terminal. It implements auth.CredentialProvider.
type Provider struct{}

// New creates a terminal credential provider.
func New() *Provider { return &Provider{} }

// PhoneNumber implements auth.CredentialProvider.
func (p *Provider) PhoneNumber(ctx context.Context) (string, error) {
	return p.input(ctx, "Phone number", "International format, e.g. +15550100", huh.EchoModeNormal)
}

// Code implements auth.CredentialProvider.
func (p *Provider) Code(ctx context.Context) (string, error) {
	return p.input(ctx, "Authentication code", "The code Telegram sent to your phone or another device", huh.EchoModeNormal)
}

// Password implements auth.CredentialProvider.
func (p *Provider) Password(ctx context.Context) (string, error) {
	return p.input(ctx, "Two-step verification password", "", huh.EchoModePassword)
}

// EmailAddress implements auth.CredentialProvider.
func (p *Provider) EmailAddress(ctx context.Context) (string, error) {
	return p.input(ctx, "Email address", "", huh.EchoModeNormal)
}

// EmailCode implements auth.CredentialProvider.
func (p *Provider) EmailCode(ctx context.Context) (string, error) {
	return p.input(ctx, "Email code", "The code Telegram sent to your email address", huh.EchoModeNormal)
}

// Name implements auth.CredentialProvider.
func (p *Provider) Name(ctx context.Context) (string, string, error) {
	var first, last string

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("First name").Validate(notEmpty).Value(&first),
		huh.NewInput().Title("Last name").Value(&last),
	))

	if err := form.RunWithContext(ctx); err != nil {
		return "", "", mapAbort(err)
	}
	return strings.TrimSpace(first), strings.TrimSpace(last), nil
}

// APICredentials implements auth.CredentialProvider. It is reached when
// neither the config file nor the environment carries an application
// identity.
func (p *Provider) APICredentials(ctx context.Context) (int32, string, error) {
	var id, hash string

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("API ID").
			Description("Obtain your own api_id and api_hash at https://my.telegram.org").
			Validate(numeric).
			Value(&id),
		huh.NewInput().Title("API hash").Validate(notEmpty).Value(&hash),
	))

	if err := form.RunWithContext(ctx); err != nil {
		return 0, "", mapAbort(err)
	}

	apiID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("prompt: api id: %w", err)
	}
	return int32(apiID), strings.TrimSpace(hash), nil
}

func (p *Provider) input(ctx context.Context, title, description string, echo huh.EchoMode) (string, error) {
	var value string

	in := huh.NewInput().Title(title).EchoMode(echo).Validate(notEmpty).Value(&value)
	if description != "" {
		in = in.Description(description)
	}

	if err := huh.NewForm(huh.NewGroup(in)).RunWithContext(ctx); err != nil {
		return "", mapAbort(err)
	}
	return strings.TrimSpace(value), nil
}

func notEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func numeric(s string) error {
	if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32); err != nil {
		return errors.New("must be a number")
	}
	return nil
}

// mapAbort folds huh's abort error into context.Canceled so callers have a
// single cancellation signal to test for.
func mapAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return context.Canceled
	}
	return err
}
