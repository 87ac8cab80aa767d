package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shared-object/simpletd/pkg/client"
	"github.com/shared-object/simpletd/pkg/tdmsg"
)

// appModel is the root bubbletea model. Updates arrive through the bridge
// goroutine as updateMsg values; outgoing messages go to the last chat an
// update was seen for.
type appModel struct {
	ctx    context.Context
	client *client.Client
	me     string

	stream viewport.Model
	input  textinput.Model
	render *formatter

	lines      []string
	lastChatID int64
	status     string

	cancelBridge context.CancelFunc
	width        int
	height       int
	ready        bool
}

func newAppModel(ctx context.Context, c *client.Client, me string) appModel {
	in := textinput.New()
	in.Placeholder = "message the last active chat"
	in.Prompt = "> "
	in.Focus()

	return appModel{
		ctx:    ctx,
		client: c,
		me:     me,
		input:  in,
		render: newFormatter(80),
	}
}

func (m appModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case programReadyMsg:
		m.cancelBridge = startBridge(m.ctx, msg.program, m.client)
		return m, nil

	case updateMsg:
		line, chatID, ok := m.render.Format(msg.update)
		if chatID != 0 {
			m.lastChatID = chatID
		}
		if ok {
			m.appendLine(line)
		}
		return m, nil

	case streamErrMsg:
		m.appendLine(errorStyle.Render("stream: " + msg.err.Error()))
		return m, nil

	case sentMsg:
		switch {
		case msg.err != nil:
			m.status = errorStyle.Render("send failed: " + msg.err.Error())
		case msg.resp.Type() == "error":
			m.status = errorStyle.Render(fmt.Sprintf("send rejected %d: %s",
				msg.resp.Int64("code"), msg.resp.String("message")))
		default:
			m.status = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := titleStyle.Render("simpletd") + dimStyle.Render(" · "+m.me)

	status := m.status
	if status == "" {
		if m.lastChatID == 0 {
			status = helpStyle.Render("waiting for a chat update · ctrl+c to quit")
		} else {
			status = helpStyle.Render(fmt.Sprintf("chat %d · enter to send · ctrl+c to quit", m.lastChatID))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.stream.View(),
		m.input.View(),
		status,
	)
}

func (m *appModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Title, input and status each take one row.
	streamHeight := max(m.height-3, 1)
	if !m.ready {
		m.stream = viewport.New(m.width, streamHeight)
		m.ready = true
	} else {
		m.stream.Width = m.width
		m.stream.Height = streamHeight
	}
	m.render = newFormatter(max(m.width-4, 20))
	m.input.Width = max(m.width-4, 10)
	m.refreshStream()
	return m, nil
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.cancelBridge != nil {
			m.cancelBridge()
		}
		return m, tea.Quit

	case tea.KeyEnter:
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *appModel) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.lastChatID == 0 {
		m.status = errorStyle.Render("no chat yet: wait for an incoming update")
		return m, nil
	}
	m.input.Reset()

	m.appendLine(senderStyle.Render("you") + " " + text)
	m.status = dimStyle.Render("sending...")

	c, ctx, chatID := m.client, m.ctx, m.lastChatID
	send := func() tea.Msg {
		resp, err := c.Invoke(ctx, tdmsg.New("sendMessage", tdmsg.Message{
			"chat_id": chatID,
			"input_message_content": tdmsg.New("inputMessageText", tdmsg.Message{
				"text": tdmsg.New("formattedText", tdmsg.Message{"text": text}),
			}),
		}))
		return sentMsg{resp: resp, err: err}
	}
	return m, send
}

func (m *appModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	m.refreshStream()
}

func (m *appModel) refreshStream() {
	if !m.ready {
		return
	}
	atBottom := m.stream.AtBottom()
	m.stream.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.stream.GotoBottom()
	}
}
