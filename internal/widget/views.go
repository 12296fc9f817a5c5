package widget

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observable"
)

const (
	UnitImperial = "imperial"
	UnitMetric   = "metric"
)

// DefaultHourlyCount is how many upcoming hours Hourly shows when asked for none.
const DefaultHourlyCount = 4

var (
	iconStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Foreground(lipgloss.Color("220"))
	tempStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(9)
	hourStyle = lipgloss.NewStyle().
			Width(7).
			Align(lipgloss.Center)
)

// View is anything that renders itself from current state.
type View interface {
	View() string
}

// unitVar holds "imperial" or "metric". Any other value renders as imperial.
type unitVar = *observable.Variable[string]

func isMetric(unit unitVar) bool {
	return unit != nil && unit.Get() == UnitMetric
}

// temp formats a temperature pair for the active unit, or the placeholder.
func temp(live bool, c, f float64, unit unitVar) string {
	if !live {
		return "-°"
	}
	if isMetric(unit) {
		return fmt.Sprintf("%.0f°", c)
	}
	return fmt.Sprintf("%.0f°", f)
}

func unitSuffix(unit unitVar) string {
	if isMetric(unit) {
		return "C"
	}
	return "F"
}

// TodayIcon renders the glyph for the current condition.
type TodayIcon struct {
	cell *observable.Variable[models.Weather]
}

func NewTodayIcon(cell *observable.Variable[models.Weather]) *TodayIcon {
	return &TodayIcon{cell: cell}
}

func (v *TodayIcon) View() string {
	w := v.cell.Get()
	g := glyphPlaceholder
	if !models.IsDefault(w) {
		g = Glyph(w.Current.Condition.Code, w.Current.IsDay)
	}
	return iconStyle.Render(g)
}

// TodayTemperature renders the current temperature, feels-like and the day's range.
type TodayTemperature struct {
	cell *observable.Variable[models.Weather]
	unit unitVar
}

func NewTodayTemperature(cell *observable.Variable[models.Weather], unit *observable.Variable[string]) *TodayTemperature {
	return &TodayTemperature{cell: cell, unit: unit}
}

func (v *TodayTemperature) View() string {
	w := v.cell.Get()
	live := !models.IsDefault(w)
	day := w.Today().Day

	now := tempStyle.Render(temp(live, w.Current.TempC, w.Current.TempF, v.unit) + unitSuffix(v.unit))
	feels := dimStyle.Render("feels " + temp(live, w.Current.FeelslikeC, w.Current.FeelslikeF, v.unit))
	hiLo := dimStyle.Render(fmt.Sprintf("H %s L %s",
		temp(live, day.MaxtempC, day.MaxtempF, v.unit),
		temp(live, day.MintempC, day.MintempF, v.unit),
	))
	return lipgloss.JoinVertical(lipgloss.Left, now, feels, hiLo)
}

// TodayStats renders the condition text, wind, humidity and chance of rain.
type TodayStats struct {
	cell *observable.Variable[models.Weather]
	unit unitVar
}

func NewTodayStats(cell *observable.Variable[models.Weather], unit *observable.Variable[string]) *TodayStats {
	return &TodayStats{cell: cell, unit: unit}
}

func (v *TodayStats) View() string {
	w := v.cell.Get()
	if models.IsDefault(w) {
		return lipgloss.JoinVertical(lipgloss.Left,
			w.Current.Condition.Text,
			stat("Wind", "-"),
			stat("Humidity", "-"),
			stat("Rain", "-"),
		)
	}

	wind := fmt.Sprintf("%.0f mph %s", w.Current.WindMph, w.Current.WindDir)
	if isMetric(v.unit) {
		wind = fmt.Sprintf("%.0f kph %s", w.Current.WindKph, w.Current.WindDir)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		w.Current.Condition.Text,
		stat("Wind", wind),
		stat("Humidity", fmt.Sprintf("%d%%", w.Current.Humidity)),
		stat("Rain", fmt.Sprintf("%d%%", w.Today().Day.DailyChanceOfRain)),
	)
}

func stat(label, value string) string {
	return labelStyle.Render(label) + value
}

// Hourly renders the next count hours after the location's local time, taken
// from the first forecast day. Missing hours are padded with placeholders.
type Hourly struct {
	cell  *observable.Variable[models.Weather]
	unit  unitVar
	count int
}

func NewHourly(cell *observable.Variable[models.Weather], unit *observable.Variable[string], count int) *Hourly {
	if count <= 0 {
		count = DefaultHourlyCount
	}
	return &Hourly{cell: cell, unit: unit, count: count}
}

func (v *Hourly) View() string {
	w := v.cell.Get()
	live := !models.IsDefault(w)

	var hours []models.Hour
	if live {
		hours = UpcomingHours(w, v.count)
	}

	cols := make([]string, 0, v.count)
	for i := 0; i < v.count; i++ {
		if i >= len(hours) {
			cols = append(cols, hourColumn("-", glyphPlaceholder, "-°", "-"))
			continue
		}
		h := hours[i]
		cols = append(cols, hourColumn(
			clockOf(h.Time),
			Glyph(h.Condition.Code, h.IsDay),
			temp(true, h.TempC, h.TempF, v.unit),
			fmt.Sprintf("%d%%", h.ChanceOfRain),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func hourColumn(clock, glyph, t, rain string) string {
	return hourStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		dimStyle.Render(clock),
		glyph,
		t,
		dimStyle.Render(rain),
	))
}

// UpcomingHours returns up to count hours of the first forecast day that start
// after the location's local time. Both timestamps use the API's
// "YYYY-MM-DD HH:MM" form, which orders correctly as strings.
func UpcomingHours(w models.Weather, count int) []models.Hour {
	var out []models.Hour
	for _, h := range w.Today().Hour {
		if len(out) == count {
			break
		}
		if h.Time > w.Location.Localtime {
			out = append(out, h)
		}
	}
	return out
}

// clockOf returns the HH:MM part of "YYYY-MM-DD HH:MM".
func clockOf(ts string) string {
	if i := strings.LastIndexByte(ts, ' '); i >= 0 {
		return ts[i+1:]
	}
	return ts
}
