package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

type confirmModel struct {
	title    string
	question string
	answer   bool
	decided  bool
}

func newConfirmModel(title, question string) confirmModel {
	return confirmModel{title: title, question: question}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer, m.decided = true, true
		return m, tea.Quit
	case "n", "N", "esc", "ctrl+c", "q":
		m.answer, m.decided = false, true
		return m, tea.Quit
	case "left", "right", "tab", "h", "l":
		m.answer = !m.answer
	case "enter":
		m.decided = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	yes, no := "  Yes  ", "  No  "
	if m.answer {
		yes = okStyle.Bold(true).Render("[ Yes ]")
	} else {
		no = failStyle.Bold(true).Render("[ No ]")
	}
	if m.decided {
		choice := "cancelled"
		if m.answer {
			choice = "confirmed"
		}
		return fmt.Sprintf("%s\n%s %s\n", titleStyle.Render(m.title), m.question, hintStyle.Render(choice))
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s %s\n\n%s\n",
		titleStyle.Render(m.title), m.question, yes, no,
		hintStyle.Render("y/n to answer, arrows to switch, enter to accept"))
}

// Confirm asks a yes/no question. The default answer is no.
func Confirm(title, question string) (bool, error) {
	final, err := tea.NewProgram(newConfirmModel(title, question)).Run()
	if err != nil {
		return false, err
	}
	res := final.(confirmModel)
	return res.decided && res.answer, nil
}
