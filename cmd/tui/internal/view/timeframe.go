package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
)

// Timeframe is a named window of transaction dates.
type Timeframe int

const (
	TimeframeAll Timeframe = iota
	TimeframeThisWeek
	TimeframeLastWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeThisYear
	TimeframeCustom
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeAll:
		return "All Time"
	case TimeframeThisWeek:
		return "This Week"
	case TimeframeLastWeek:
		return "Last Week"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeThisYear:
		return "This Year"
	case TimeframeCustom:
		return "Custom Range"
	}

	return "Unknown"
}

// Range returns the inclusive first and last day of the timeframe around
// today. Weeks start on Monday. All and Custom have no fixed range.
func (t Timeframe) Range(today time.Time) (start, end time.Time, ok bool) {
	today = calendar.Day(today)

	// Days since Monday.
	offset := (int(today.Weekday()) + 6) % 7

	switch t {
	case TimeframeThisWeek:
		return today.AddDate(0, 0, -offset), today, true
	case TimeframeLastWeek:
		end = today.AddDate(0, 0, -offset-1)
		return end.AddDate(0, 0, -6), end, true
	case TimeframeThisMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today, true
	case TimeframeLastMonth:
		start = time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1), true
	case TimeframeThisYear:
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), today, true
	}

	return time.Time{}, time.Time{}, false
}

// DateRange is the window the transactions list is narrowed to. Nil bounds
// are open.
type DateRange struct {
	Label string
	Start *time.Time
	End   *time.Time
}

func (r DateRange) String() string {
	if r.Start == nil && r.End == nil {
		return TimeframeAll.String()
	}

	if r.Label != "" {
		return r.Label
	}

	return FormatDate(*r.Start) + " .. " + FormatDate(*r.End)
}

// TimeframeSelectedMsg is emitted when the user confirms a range.
type TimeframeSelectedMsg struct {
	Range DateRange
}

type timeframeState int

const (
	timeframeStateSelect timeframeState = iota
	timeframeStateCustom
)

// TimeframePicker lets the user pick a named timeframe or type a custom range.
type TimeframePicker struct {
	state    timeframeState
	selected Timeframe
	today    func() time.Time

	startInput textinput.Model
	endInput   textinput.Model
	focusIndex int

	err error
}

func NewTimeframePicker(today func() time.Time) TimeframePicker {
	si := textinput.New()
	si.Placeholder = "YYYY-MM-DD"
	si.CharLimit = 10
	si.Width = 12
	si.Prompt = "Start Date: "

	ei := textinput.New()
	ei.Placeholder = "YYYY-MM-DD"
	ei.CharLimit = 10
	ei.Width = 12
	ei.Prompt = "End Date:   "

	return TimeframePicker{
		today:      today,
		startInput: si,
		endInput:   ei,
	}
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case timeframeStateSelect:
			return m.updateSelect(key)
		case timeframeStateCustom:
			return m.updateCustom(key)
		}
	}

	return m, nil
}

func (m TimeframePicker) updateSelect(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.selected > TimeframeAll {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case tea.KeyEnter:
		switch m.selected {
		case TimeframeCustom:
			m.state = timeframeStateCustom
			m.focusIndex = 0
			m.startInput.Focus()

			return m, textinput.Blink

		case TimeframeAll:
			return m, selected(DateRange{})
		}

		start, end, _ := m.selected.Range(m.today())

		return m, selected(DateRange{Label: m.selected.String(), Start: &start, End: &end})
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.focusIndex = (m.focusIndex + 1) % 2
		m.startInput.Blur()
		m.endInput.Blur()

		if m.focusIndex == 0 {
			m.startInput.Focus()
		} else {
			m.endInput.Focus()
		}

		return m, textinput.Blink

	case "enter":
		r, err := customRange(m.startInput.Value(), m.endInput.Value())
		if err != nil {
			m.err = err
			return m, nil
		}

		m.err = nil

		return m, selected(r)

	case "esc":
		m.state = timeframeStateSelect
		m.err = nil

		return m, nil
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.startInput, cmd = m.startInput.Update(msg)
	} else {
		m.endInput, cmd = m.endInput.Update(msg)
	}

	return m, cmd
}

func customRange(startText, endText string) (DateRange, error) {
	start, err := time.Parse(time.DateOnly, strings.TrimSpace(startText))
	if err != nil {
		return DateRange{}, errors.New("invalid start date (YYYY-MM-DD)")
	}

	end, err := time.Parse(time.DateOnly, strings.TrimSpace(endText))
	if err != nil {
		return DateRange{}, errors.New("invalid end date (YYYY-MM-DD)")
	}

	if end.Before(start) {
		return DateRange{}, errors.New("end date is before start date")
	}

	return DateRange{Start: &start, End: &end}, nil
}

func selected(r DateRange) tea.Cmd {
	return func() tea.Msg { return TimeframeSelectedMsg{Range: r} }
}

// Editing reports whether the picker is taking custom dates, where Esc only
// leaves the inputs.
func (m TimeframePicker) Editing() bool {
	return m.state == timeframeStateCustom
}

func (m TimeframePicker) View() string {
	var b strings.Builder

	if m.state == timeframeStateCustom {
		fmt.Fprintf(&b, "Custom range\n\n%s\n%s\n\n%s",
			m.startInput.View(), m.endInput.View(),
			faint.Render("Enter: confirm | Tab: switch | Esc: presets"))
	} else {
		b.WriteString("Timeframe\n\n")

		for tf := TimeframeAll; tf <= TimeframeCustom; tf++ {
			cursor := "  "
			if tf == m.selected {
				cursor = "> "
			}

			b.WriteString(cursor + tf.String() + "\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n\n" + errText.Render(m.err.Error()))
	}

	return b.String()
}
