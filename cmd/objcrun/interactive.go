package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/objc-bridge/proxy"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD479"))

	methodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectClass modelState = iota
	stateSelectMethod
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	env      *environment
	class    *proxy.Object
	source   string
	result   string
	classes  []string
	methods  []*proxy.Method
	inputs   []textinput.Model
	selected int
	cursor   int
	focusIdx int
	state    modelState
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(env *environment, source string) *interactiveModel {
	if source == "" {
		source = "Foundation"
	}
	return &interactiveModel{
		env:     env,
		source:  source,
		classes: env.rt.Classes(),
		state:   stateSelectClass,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state != stateInputArgs && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state != stateInputArgs && m.selected < m.listLen()-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectClass:
				m.openClass()

			case stateSelectMethod:
				if len(m.methods) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callMethod
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callMethod

			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateSelectMethod:
				m.state = stateSelectClass
				m.selected = m.cursor
				m.err = nil
			case stateInputArgs:
				m.state = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectMethod
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) listLen() int {
	if m.state == stateSelectClass {
		return len(m.classes)
	}
	return len(m.methods)
}

func (m *interactiveModel) openClass() {
	if len(m.classes) == 0 {
		return
	}
	cls, err := m.env.rt.Use(m.classes[m.selected])
	if err != nil {
		m.err = err
		return
	}
	m.class = cls
	m.methods = m.methods[:0]
	for _, name := range cls.Class().Methods() {
		if meth, ok := cls.Method(name); ok {
			m.methods = append(m.methods, meth)
		}
	}
	m.cursor = m.selected
	m.selected = 0
	m.state = stateSelectMethod
}

func (m *interactiveModel) prepareInputs() {
	meth := m.methods[m.selected]
	params := meth.Signature().Params()
	m.inputs = make([]textinput.Model, len(params))
	for i, p := range params {
		ti := textinput.New()
		ti.Placeholder = p.Encoding
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callMethod() tea.Msg {
	meth := m.methods[m.selected]

	raw := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		raw[i] = input.Value()
	}
	args, err := parseArgs(m.env, meth, raw)
	if err != nil {
		return callResultMsg{err: err}
	}

	recv, err := receiver(m.class, meth)
	if err != nil {
		return callResultMsg{err: err}
	}
	result, err := meth.Call(recv, args...)
	if err != nil {
		return callResultMsg{err: err}
	}
	// queued work runs before the result is shown
	return callResultMsg{result: formatResult(result), err: errors.Join(m.env.proc.Drain()...)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ObjC Runner"))
	b.WriteString(" ")
	b.WriteString(m.source)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectClass:
		b.WriteString("Select a class:\n\n")
		for i, name := range m.classes {
			m.writeItem(&b, i, classStyle.Render(name))
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateSelectMethod:
		b.WriteString(fmt.Sprintf("Methods of %s:\n\n", classStyle.Render(m.class.Class().Name())))
		for i, meth := range m.methods {
			m.writeItem(&b, i, m.formatMethod(meth))
		}
		if skipped := m.class.Class().Skipped(); len(skipped) > 0 {
			b.WriteString(helpStyle.Render(fmt.Sprintf("\n%d method(s) with unsupported encodings hidden\n", len(skipped))))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • esc back • q quit"))

	case stateInputArgs:
		meth := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", methodStyle.Render(formatName(meth))))
		params := meth.Signature().Params()
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(params[i].Encoding))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		meth := m.methods[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", methodStyle.Render(formatName(meth))))
		if m.result != "" {
			b.WriteString(resultStyle.Render(m.result))
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) writeItem(b *strings.Builder, i int, text string) {
	if i == m.selected {
		b.WriteString(selectedStyle.Render("> " + text))
	} else {
		b.WriteString("  " + text)
	}
	b.WriteString("\n")
}

func (m *interactiveModel) formatMethod(meth *proxy.Method) string {
	var params []string
	for _, p := range meth.Signature().Params() {
		params = append(params, typeStyle.Render(p.Encoding))
	}
	return methodStyle.Render(formatName(meth)) + "(" + strings.Join(params, ", ") + ") -> " +
		typeStyle.Render(meth.Signature().Return.Encoding)
}

func runInteractive(env *environment, source string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newInteractiveModel(env, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
