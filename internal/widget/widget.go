package widget

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observable"
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// WeatherWidget is the fixed layout: icon, temperature and stats side by side,
// a separator, then the hourly strip. The tree is built once; every child reads
// the shared cell when rendered.
type WeatherWidget struct {
	cell        *observable.Variable[models.Weather]
	icon        View
	temperature View
	stats       View
	hourly      View
}

// New builds the widget over cell. unit holds "imperial" or "metric".
func New(cell *observable.Variable[models.Weather], unit *observable.Variable[string], hourlyCount int) *WeatherWidget {
	return &WeatherWidget{
		cell:        cell,
		icon:        NewTodayIcon(cell),
		temperature: NewTodayTemperature(cell, unit),
		stats:       NewTodayStats(cell, unit),
		hourly:      NewHourly(cell, unit, hourlyCount),
	}
}

// Children returns the child views in layout order.
func (w *WeatherWidget) Children() []View {
	return []View{w.icon, w.temperature, w.stats, w.hourly}
}

func (w *WeatherWidget) View() string {
	title := titleStyle.Render(w.cell.Get().Location.Name)
	today := lipgloss.JoinHorizontal(lipgloss.Center,
		w.icon.View(),
		w.temperature.View(),
		"  ",
		w.stats.View(),
	)
	hourly := w.hourly.View()

	width := max(lipgloss.Width(today), lipgloss.Width(hourly))
	separator := separatorStyle.Render(strings.Repeat("─", width))

	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		today,
		separator,
		hourly,
	))
}
