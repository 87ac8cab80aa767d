package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// maxHeaderWidth bounds the rendered sender/chat header of a message line.
const maxHeaderWidth = 40

// formatter renders updates into terminal lines. Message text goes through
// a markdown renderer; everything else gets a compact one-line summary.
type formatter struct {
	renderer *glamour.TermRenderer
}

func newFormatter(wrap int) *formatter {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		// Fall back to plain text rendering.
		return &formatter{}
	}
	return &formatter{renderer: r}
}

// Format renders one update. ok reports whether the update produced a
// visible line; chatID is non-zero for updates tied to a chat.
func (f *formatter) Format(m tdmsg.Message) (line string, chatID int64, ok bool) {
	switch m.Type() {
	case "updateNewMessage":
		msg := m.Object("message")
		if msg == nil {
			return "", 0, false
		}
		chatID = msg.Int64("chat_id")
		header := senderStyle.Render(runewidth.Truncate(describeSender(msg), maxHeaderWidth, "…"))
		return header + " " + f.renderContent(msg.Object("content")), chatID, true

	case "updateConnectionState":
		state := m.Object("state")
		if state == nil {
			return "", 0, false
		}
		return dimStyle.Render("connection: " + strings.TrimPrefix(state.Type(), "connectionState")), 0, true

	case "updateOption":
		value := m.Object("value")
		if value == nil {
			return "", 0, false
		}
		return dimStyle.Render(fmt.Sprintf("option %s = %v", m.String("name"), value["value"])), 0, true

	case "updateAuthorizationState":
		state := m.Object("authorization_state")
		if state == nil {
			return "", 0, false
		}
		return dimStyle.Render("authorization: " + strings.TrimPrefix(state.Type(), "authorizationState")), 0, true

	case "error":
		return errorStyle.Render(fmt.Sprintf("error %d: %s", m.Int64("code"), m.String("message"))), 0, true

	default:
		return dimStyle.Render(m.Type()), 0, true
	}
}

// renderContent formats a message content object. Text bodies pass through
// the markdown renderer; other content kinds show their type tag.
func (f *formatter) renderContent(content tdmsg.Message) string {
	if content == nil {
		return dimStyle.Render("(empty)")
	}

	if content.Type() == "messageText" {
		if text := content.Object("text"); text != nil {
			return f.renderMarkdown(text.String("text"))
		}
	}
	return dimStyle.Render("(" + strings.TrimPrefix(content.Type(), "message") + ")")
}

func (f *formatter) renderMarkdown(text string) string {
	if f.renderer == nil {
		return text
	}
	out, err := f.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

// describeSender names the message's origin well enough for a line header.
func describeSender(msg tdmsg.Message) string {
	sender := msg.Object("sender_id")
	if sender == nil {
		return fmt.Sprintf("chat %d", msg.Int64("chat_id"))
	}

	switch sender.Type() {
	case "messageSenderUser":
		return fmt.Sprintf("user %d", sender.Int64("user_id"))
	case "messageSenderChat":
		return fmt.Sprintf("chat %d", sender.Int64("chat_id"))
	default:
		return fmt.Sprintf("chat %d", msg.Int64("chat_id"))
	}
}
