// Package panel is the terminal weather panel. The bubbletea event loop is the
// UI thread: refresh ticks are delivered as messages, so the refresh timer
// runs on the same goroutine that renders the view.
package panel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/i474232898/weather-panel/internal/weather"
)

// Ticker is the refresh work done on every tick.
type Ticker interface {
	Tick() weather.Status
}

type tickMsg time.Time

// Model is a tea.Model and a weather.Display. Its display methods are only
// called from Update, so the model needs no locking.
type Model struct {
	title    string
	interval time.Duration
	ticker   Ticker

	record    *weather.Record
	status    weather.Status
	hasStatus bool
	ticks     int
}

// New creates a panel titled with the source's identity.
func New(title string, interval time.Duration) *Model {
	return &Model{
		title:    title,
		interval: interval,
	}
}

// SetTicker attaches the refresh timer. It must be called before Run.
func (m *Model) SetTicker(t Ticker) {
	m.ticker = t
}

func (m *Model) ShowRecord(rec weather.Record) {
	m.record = &rec
}

func (m *Model) ShowStatus(s weather.Status) {
	m.status = s
	m.hasStatus = true
}

func (m *Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.ticker != nil {
			m.ticker.Tick()
		}
		m.ticks++
		return m, tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n  %s\n\n", m.title)

	if m.hasStatus && m.status == weather.StatusOk && m.record != nil {
		fmt.Fprintf(&b, "  Temperature  %6.1f °C\n", m.record.TemperatureC)
		fmt.Fprintf(&b, "  Humidity     %6.1f %%\n", m.record.HumidityPct)
		fmt.Fprintf(&b, "  Updated      %s\n", m.record.Timestamp)
	} else {
		b.WriteString("  Temperature      -- °C\n")
		b.WriteString("  Humidity         -- %\n")
		b.WriteString("  Updated      --\n")
	}

	b.WriteString("\n  Sensor: ")
	switch {
	case !m.hasStatus:
		b.WriteString("waiting")
	case m.status == weather.StatusOk:
		b.WriteString("OK")
	default:
		b.WriteString("ERROR")
	}
	b.WriteString("\n\n  q to quit\n")

	return b.String()
}

// CheckTerminal reports an error unless every file is a terminal. The
// program only opens the terminal inside Run, so callers check first.
func CheckTerminal(files ...*os.File) error {
	for _, f := range files {
		if f == nil || !term.IsTerminal(int(f.Fd())) {
			name := "<nil>"
			if f != nil {
				name = f.Name()
			}
			return fmt.Errorf("panel needs a terminal, %s is not one", name)
		}
	}
	return nil
}

// Run drives the panel until the user quits or ctx is cancelled.
func Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) error {
	if m.ticker == nil {
		return errors.New("panel: no ticker attached")
	}

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
