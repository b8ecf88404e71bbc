package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/wrenit/wren"
)

// replModule is the module every REPL line is interpreted in, so variables
// persist between lines.
const replModule = "repl"

// historySize is the number of evaluated lines kept on screen.
const historySize = 20

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type replEntry struct {
	source string
	output string
	err    error
}

type evalMsg replEntry

type replModel struct {
	vm      *wren.VM
	out     *sink
	engine  string
	input   textinput.Model
	history []replEntry
	recall  int
	busy    bool
}

func newREPLModel(vm *wren.VM, out *sink, engineName string) *replModel {
	ti := textinput.New()
	ti.Placeholder = `System.print("hello")`
	ti.Prompt = "wren> "
	ti.Width = 60
	ti.Focus()
	if engineName == "" {
		engineName = "reference interpreter"
	}
	return &replModel{vm: vm, out: out, engine: engineName, input: ti}
}

func (m *replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if m.busy || line == "" {
				return m, nil
			}
			m.input.Reset()
			m.recall = 0
			m.busy = true
			return m, m.eval(line)

		case "up":
			if m.recall < len(m.history) {
				m.recall++
				m.input.SetValue(m.history[len(m.history)-m.recall].source)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.recall > 0 {
				m.recall--
			}
			if m.recall == 0 {
				m.input.Reset()
			} else {
				m.input.SetValue(m.history[len(m.history)-m.recall].source)
			}
			return m, nil
		}

	case evalMsg:
		m.busy = false
		m.history = append(m.history, replEntry(msg))
		if len(m.history) > historySize {
			m.history = m.history[len(m.history)-historySize:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// eval interprets line with VM output captured for the history entry. Only
// one evaluation runs at a time.
func (m *replModel) eval(line string) tea.Cmd {
	return func() tea.Msg {
		var buf strings.Builder
		prev := m.out.swap(&buf)
		err := m.vm.Interpret(replModule, line)
		m.out.swap(prev)
		return evalMsg{source: line, output: buf.String(), err: err}
	}
}

func (m *replModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Wren " + wren.VersionString))
	b.WriteString(" ")
	b.WriteString(m.engine)
	b.WriteString("\n\n")

	for _, e := range m.history {
		b.WriteString(sourceStyle.Render(m.input.Prompt + e.source))
		b.WriteString("\n")
		if out := strings.TrimRight(e.output, "\n"); out != "" {
			style := resultStyle
			if e.err != nil {
				style = errorStyle
			}
			b.WriteString(style.Render(out))
			b.WriteString("\n")
		}
		if e.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", e.err)))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • ↑/↓ history • ctrl+c quit"))
	return b.String()
}

func runInteractive(vm *wren.VM, out *sink, engineName string) error {
	p := tea.NewProgram(newREPLModel(vm, out, engineName), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
