package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/go-go-golems/figaro/pkg/chat/events"
	"github.com/go-go-golems/figaro/pkg/chat/session"
	"github.com/go-go-golems/figaro/pkg/chat/transcript"
)

// streamMsg carries a session event from the watermill handler into the
// bubbletea update loop. The transcript store is already reconciled by the
// time the event arrives; the model only needs to re-render and react to
// navigation and terminal events.
type streamMsg struct {
	event events.Event
}

type sendDoneMsg struct {
	err error
}

type errMsg error

type model struct {
	session *session.Session

	textArea textarea.Model
	// is the textarea currently focused
	focused bool
	// currently selected message, always valid
	selectedIdx int
	err         error
	keyMap      KeyMap

	style  *Style
	width  int
	height int
	status string
}

func (m *model) updateKeyBindings() {
	if m.focused {
		m.keyMap.SelectNextMessage.SetEnabled(false)
		m.keyMap.SelectPrevMessage.SetEnabled(false)
		m.keyMap.FocusInput.SetEnabled(false)
		m.keyMap.UnfocusInput.SetEnabled(true)
		m.keyMap.SubmitMessage.SetEnabled(true)
	} else {
		m.keyMap.SelectNextMessage.SetEnabled(true)
		m.keyMap.SelectPrevMessage.SetEnabled(true)
		m.keyMap.FocusInput.SetEnabled(true)
		m.keyMap.UnfocusInput.SetEnabled(false)
		m.keyMap.SubmitMessage.SetEnabled(false)
	}
}

func initialModel(s *session.Session) model {
	ret := model{
		session: s,
		style:   DefaultStyles(),
		keyMap:  DefaultKeyMap,
		status:  "new conversation",
	}

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Ask about the docs..."
	ret.textArea.Focus()
	ret.focused = true

	ret.updateKeyBindings()

	return ret
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) submit() (model, tea.Cmd) {
	if m.session.IsRunning() {
		return m, nil
	}
	query := m.textArea.Value()
	m.textArea.Reset()

	s := m.session
	return m, func() tea.Msg {
		return sendDoneMsg{err: s.Send(context.Background(), query)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.UnfocusInput):
			if m.focused {
				m.textArea.Blur()
				m.focused = false
				m.updateKeyBindings()
			}
		case key.Matches(msg, m.keyMap.Quit):
			m.session.Close()
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.FocusInput):
			if !m.focused {
				cmd = m.textArea.Focus()
				m.focused = true
				m.updateKeyBindings()
			}

		case key.Matches(msg, m.keyMap.SelectNextMessage):
			if m.selectedIdx < len(m.session.Transcript().Snapshot())-1 {
				m.selectedIdx++
			}

		case key.Matches(msg, m.keyMap.SelectPrevMessage):
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}

		case key.Matches(msg, m.keyMap.NewConversation):
			if !m.session.IsRunning() {
				s := m.session
				m.status = "new conversation"
				m.selectedIdx = 0
				cmds = append(cmds, func() tea.Msg {
					return sendDoneMsg{err: s.SwitchConversation(context.Background(), "")}
				})
			}

		case key.Matches(msg, m.keyMap.SubmitMessage):
			if m.focused {
				m, cmd = m.submit()
				cmds = append(cmds, cmd)
			}

		default:
			if m.focused {
				m.textArea, cmd = m.textArea.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case streamMsg:
		switch ev := msg.event.(type) {
		case *events.EventNavigate:
			m.status = "conversation " + ev.ConversationID
		case *events.EventError:
			m.status = "stream failed"
		}
		// partial and final events only need the redraw this update triggers

	case sendDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		}

	case tea.WindowSizeMsg:
		h, _ := m.style.SelectedMessage.GetFrameSize()
		m.textArea.SetWidth(msg.Width - h)
		m.width = msg.Width
		m.height = msg.Height

	case errMsg:
		m.err = msg
		return m, nil

	default:
	}

	return m, tea.Batch(cmds...)
}

func (m model) renderMessage(msg transcript.Message, selected bool) string {
	text := msg.Text()
	if msg.IsStreaming {
		text += "▌"
	}
	prefix := "you"
	if msg.Sender == transcript.SenderAssistant {
		prefix = "assistant"
	}

	w, _ := m.style.SelectedMessage.GetFrameSize()
	wrapped := wordwrap.String(fmt.Sprintf("%s: %s", prefix, text), m.width-w)

	style := m.style.UserMessage
	switch {
	case selected && !m.focused:
		style = m.style.SelectedMessage
	case msg.Content == transcript.ErrorText:
		style = m.style.ErroredMessage
	case msg.Sender == transcript.SenderAssistant:
		style = m.style.AssistantMessage
	}
	return style.Render(wrapped)
}

func (m model) View() string {
	ret := ""

	snap := m.session.Transcript().Snapshot()
	for idx := range snap {
		ret += m.renderMessage(snap[idx], idx == m.selectedIdx)
		ret += "\n"
	}

	v := m.textArea.View()
	if m.focused {
		v = m.style.FocusedInput.Render(v)
	} else {
		v = m.style.BlurredInput.Render(v)
	}
	ret += v
	ret += "\n"

	status := m.status
	if m.session.IsRunning() {
		status += " · streaming"
	}
	if m.err != nil {
		status += " · " + m.err.Error()
	}
	ret += m.style.StatusBar.Render(status)
	ret += "\n"

	return ret
}
