// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"github.com/stan3984/peas-rf-cp/pkg/netpeer"
)

const maxHistory = 200

type pollMsg struct{}

func pollTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg { return pollMsg{} })
}

// chatModel is the bubbletea model backing the interactive chat UI: a
// scrolling history of delivered messages and a single-line text input.
type chatModel struct {
	handle  *netpeer.NetHandle
	history []string
	input   string
	err     string
}

func newChatModel(h *netpeer.NetHandle) *chatModel {
	return &chatModel{handle: h}
}

func (m *chatModel) Init() tea.Cmd {
	return pollTick()
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pollMsg:
		for {
			ev, ok := m.handle.Read()
			if !ok {
				break
			}
			m.appendEvent(ev)
		}
		return m, pollTick()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.handle.Terminate()
			return m, tea.Quit
		case tea.KeyEnter:
			if m.input != "" {
				m.handle.SendMessage(m.input)
				m.history = append(m.history, color.New(color.FgGreen).Sprintf("me: %s", m.input))
				m.input = ""
			}
			return m, nil
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		default:
			m.input += msg.String()
			return m, nil
		}
	}
	return m, nil
}

func (m *chatModel) appendEvent(ev netpeer.FromNetMsg) {
	switch {
	case ev.Err != "":
		m.err = ev.Err
	case ev.NotSent:
		m.history = append(m.history, color.New(color.FgYellow).Sprint("(message not sent: no one to deliver it to)"))
	case ev.Message != nil:
		line := fmt.Sprintf("%s: %s", ev.Message.SenderName, ev.Message.Text)
		if !ev.Message.IsFromSelf {
			line = color.New(color.FgCyan).Sprint(line)
		}
		m.history = append(m.history, line)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

func (m *chatModel) View() string {
	view := ""
	for _, line := range m.history {
		view += line + "\n"
	}
	if m.err != "" {
		view += color.New(color.FgRed).Sprintf("error: %s\n", m.err)
	}
	view += "> " + m.input
	return view
}
