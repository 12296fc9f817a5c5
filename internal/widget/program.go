package widget

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observable"
)

// WeatherMsg tells the program the cell was written and the view is stale.
type WeatherMsg struct{}

// Model hosts a WeatherWidget in a bubbletea program.
type Model struct {
	widget *WeatherWidget
	unit   *observable.Variable[string]
}

// NewModel returns a program model rendering widget. unit is the variable the
// widget was built with; "u" toggles it.
func NewModel(widget *WeatherWidget, unit *observable.Variable[string]) Model {
	return Model{widget: widget, unit: unit}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "u":
			if m.unit.Get() == UnitMetric {
				m.unit.Set(UnitImperial)
			} else {
				m.unit.Set(UnitMetric)
			}
		}
	case WeatherMsg:
		// Nothing to copy: View reads the cell.
	}
	return m, nil
}

func (m Model) View() string {
	return m.widget.View() + "\n" + dimStyle.Render("u: toggle units • q: quit") + "\n"
}

// Sender is the part of *tea.Program Bind needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bind forwards every write to cell to p as a WeatherMsg. Sends happen off the
// writer's goroutine so a program that is not running yet never blocks a tick.
func Bind(p Sender, cell *observable.Variable[models.Weather]) (cancel func()) {
	return cell.Subscribe(func(models.Weather) {
		go p.Send(WeatherMsg{})
	})
}
