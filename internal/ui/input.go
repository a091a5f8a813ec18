package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/shared"
)

// inputModel is a single-line text prompt. It hints when the value does not look like a redirect URL
// carrying one authorization code, but submits whatever was entered.
type inputModel struct {
	title     string
	input     textinput.Model
	keys      keyMap
	help      help.Model
	value     string
	submitted bool
	cancelled bool
}

func newInputModel(title, placeholder string) inputModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 4096
	ti.Width = 80
	ti.Focus()

	return inputModel{
		title: title,
		input: ti,
		keys:  newKeyMap(),
		help:  help.New(),
	}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-4, 20)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.submit):
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}
			m.value = value
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	var hint string
	if value := strings.TrimSpace(m.input.Value()); value != "" {
		if _, err := auth.ParseCodeFromURL(value); err != nil {
			hint = styles.warn.Render(err.Error())
		} else {
			hint = styles.ok.Render("authorization code found")
		}
	}

	return fmt.Sprintf("%s\n%s\n%s\n\n%s\n",
		styles.title.Render(m.title), m.input.View(), hint, m.help.ShortHelpView(m.keys.ShortHelp()))
}

// TextInputReader reads one line through an interactive text input.
type TextInputReader struct {
	ctx    context.Context
	title  string
	input  io.Reader
	output io.Writer
}

// NewTextInputReader creates a reader titled title on the terminal. ctx ends a pending ReadLine.
func NewTextInputReader(ctx context.Context, title string) *TextInputReader {
	return &TextInputReader{ctx: ctx, title: title, input: os.Stdin, output: os.Stderr}
}

// ReadLine runs the input until the user submits a non-empty value or cancels.
func (r *TextInputReader) ReadLine() (string, error) {
	p := tea.NewProgram(
		newInputModel(r.title, "http://127.0.0.1:3000/callback?code=..."),
		tea.WithContext(r.ctx),
		tea.WithInput(r.input),
		tea.WithOutput(r.output),
	)

	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("input failed: %w", err)
	}
	return inputResult(final)
}

func inputResult(final tea.Model) (string, error) {
	m, ok := final.(inputModel)
	if !ok || !m.submitted {
		return "", shared.ErrCancelled
	}
	return m.value, nil
}
