package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/moclojer/chrondb"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	paramStyle = lipgloss.NewStyle().
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

type opInfo struct {
	name   string
	params []string
	call   func(db *chrondb.DB, branch string, args []string) (any, error)
}

var operations = []opInfo{
	{
		name:   "put",
		params: []string{"id", "document (JSON)"},
		call: func(db *chrondb.DB, branch string, args []string) (any, error) {
			var doc chrondb.Document
			if err := json.Unmarshal([]byte(args[1]), &doc); err != nil {
				return nil, fmt.Errorf("parse document: %w", err)
			}
			return db.Put(args[0], doc, branch)
		},
	},
	{
		name:   "get",
		params: []string{"id"},
		call: func(db *chrondb.DB, branch string, args []string) (any, error) {
			return db.Get(args[0], branch)
		},
	},
	{
		name:   "delete",
		params: []string{"id"},
		call: func(db *chrondb.DB, branch string, args []string) (any, error) {
			if err := db.Delete(args[0], branch); err != nil {
				return nil, err
			}
			return "deleted", nil
		},
	},
	{
		name:   "list-by-prefix",
		params: []string{"prefix"},
		call: func(db *chrondb.DB, branch string, args []string) (any, error) {
			return db.ListByPrefix(args[0], branch)
		},
	},
	{
		name:   "list-by-table",
		params: []string{"table"},
		call: func(db *chrondb.DB, branch string, args []string) (any, error) {
			return db.ListByTable(args[0], branch)
		},
	},
	{
		name:   "history",
		params: []string{"id"},
		call: func(db *chrondb.DB, branch string, args []string) (any, error) {
			return db.History(args[0], branch)
		},
	},
	{
		name:   "query",
		params: []string{"query (JSON)"},
		call: func(db *chrondb.DB, branch string, args []string) (any, error) {
			var query any
			if err := json.Unmarshal([]byte(args[0]), &query); err != nil {
				return nil, fmt.Errorf("parse query: %w", err)
			}
			return db.Query(query, branch)
		},
	},
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err       error
	db        *chrondb.DB
	dataPath  string
	indexPath string
	branch    string
	result    string
	inputs    []textinput.Model
	selected  int
	focusIdx  int
	state     modelState
}

func newInteractiveModel(dataPath, indexPath, branch string) *interactiveModel {
	return &interactiveModel{
		dataPath:  dataPath,
		indexPath: indexPath,
		branch:    branch,
		state:     stateSelectOp,
	}
}

type openedMsg struct {
	err error
	db  *chrondb.DB
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.openDatabase
}

func (m *interactiveModel) openDatabase() tea.Msg {
	db, err := chrondb.Open(m.dataPath, m.indexPath)
	if err != nil {
		return openedMsg{err: err}
	}
	return openedMsg{db: db}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.db != nil {
				m.db.Close()
			}
			return m, tea.Quit

		case "q":
			if m.state == stateInputArgs {
				break
			}
			if m.db != nil {
				m.db.Close()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(operations)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				m.prepareInputs()
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callOperation

			case stateShowResult:
				m.state = stateSelectOp
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
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.db = msg.db

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

func (m *interactiveModel) prepareInputs() {
	op := operations[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = p
		ti.Prompt = p + ": "
		ti.Width = 60
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callOperation() tea.Msg {
	if m.db == nil {
		return callResultMsg{err: fmt.Errorf("database not open")}
	}

	op := operations[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}

	result, err := op.call(m.db, m.branch, args)
	if err != nil {
		return callResultMsg{err: err}
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return callResultMsg{result: fmt.Sprintf("%v", result)}
	}
	return callResultMsg{result: string(out)}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.db == nil {
		return "Opening database..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("ChronDB"))
	b.WriteString(" ")
	b.WriteString(m.dataPath)
	if m.branch != "" {
		b.WriteString(" @ ")
		b.WriteString(m.branch)
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation:\n\n")
		for i, op := range operations {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + formatOp(op)))
			} else {
				b.WriteString(cursor + formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter choose • q quit"))

	case stateInputArgs:
		op := operations[m.selected]
		b.WriteString(fmt.Sprintf("Running %s\n\n", opStyle.Render(op.name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		op := operations[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatOp(op opInfo) string {
	var params []string
	for _, p := range op.params {
		params = append(params, paramStyle.Render(p))
	}
	return opStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ")"
}

func runInteractive(dataPath, indexPath, branch string) error {
	p := tea.NewProgram(newInteractiveModel(dataPath, indexPath, branch), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
