// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Michele De Stefano

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/micdestefano/elegoo-robot-car4/pkg/car"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	minTeleopSpeed     = 50 // The gear motors stall below roughly 50 PWM
	maxTeleopSpeed     = 255
	teleopSpeedStep    = 10
	defaultTeleopSpeed = 100
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// actionItem is one entry of the action menu
type actionItem struct {
	title  string
	desc   string
	action teleopAction
}

// Implement list.Item interface
func (a actionItem) Title() string       { return a.title }
func (a actionItem) Description() string { return a.desc }
func (a actionItem) FilterValue() string { return a.title }

// teleopLogEntry is one line of the event log
type teleopLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// teleopModel is the Bubble Tea model for the teleop TUI
type teleopModel struct {
	// Session goroutine (owns the driver, reached through the
	// request channel only)
	session *teleopSession

	// Connection state
	ready    bool
	dryRun   bool
	connInfo string

	// Last reported driver status
	state     string
	headAngle int
	stats     car.Statistics

	// Control
	speed          int
	actionMenu     list.Model
	menuOpen       bool
	speedInput     textinput.Model
	speedInputOpen bool

	// Event log
	eventLog      []teleopLogEntry
	maxLogEntries int

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

// The session goroutine delivers these through p.Send.

type teleopReadyMsg struct {
	connInfo string
	dryRun   bool
}

type teleopFatalMsg struct{}

type teleopStatusMsg struct {
	state     string
	headAngle int
	stats     car.Statistics
}

type teleopLogMsg struct {
	text    string
	isError bool
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialTeleopModel(session *teleopSession) teleopModel {
	// Initialize text input for the wheel speed
	ti := textinput.New()
	ti.Placeholder = "120"
	ti.CharLimit = 3
	ti.Width = 6

	// Initialize the action menu
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	items := []list.Item{
		actionItem{title: "Clear states", desc: "Reset the firmware modes and motion state", action: actClearStates},
		actionItem{title: "Line tracking mode", desc: "The firmware follows a line on the ground", action: actModeTracking},
		actionItem{title: "Obstacle avoidance mode", desc: "The firmware drives around obstacles on its own", action: actModeAvoidance},
		actionItem{title: "Follow mode", desc: "The firmware follows a nearby object", action: actModeFollow},
		actionItem{title: "Scan", desc: "Sweep the head and report the clearest direction", action: actScan},
		actionItem{title: "Home", desc: "Turn the car toward the clearest direction", action: actHome},
		actionItem{title: "Recalibrate", desc: "Measure the MPU offsets again, keep the car still", action: actRecalibrate},
		actionItem{title: "Set speed", desc: "Type a wheel speed between 50 and 255", action: actSetSpeed},
	}
	actionMenu := list.New(items, delegate, 44, 14)
	actionMenu.Title = "Actions"
	actionMenu.SetShowStatusBar(false)
	actionMenu.SetShowHelp(false)
	actionMenu.SetFilteringEnabled(false)

	return teleopModel{
		session:       session,
		speed:         defaultTeleopSpeed,
		actionMenu:    actionMenu,
		speedInput:    ti,
		eventLog:      make([]teleopLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m teleopModel) Init() tea.Cmd {
	// Redraws are driven by the session's status messages
	return nil
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case teleopReadyMsg:
		m.ready = true
		m.dryRun = msg.dryRun
		m.connInfo = msg.connInfo

	case teleopFatalMsg:
		m.quitting = true
		return m, tea.Quit

	case teleopStatusMsg:
		m.state = msg.state
		m.headAngle = msg.headAngle
		m.stats = msg.stats

	case teleopLogMsg:
		m.addLogEntry(msg.text, msg.isError)
	}

	// Update child components
	var cmd tea.Cmd
	if m.speedInputOpen {
		m.speedInput, cmd = m.speedInput.Update(msg)
	} else if m.menuOpen {
		m.actionMenu, cmd = m.actionMenu.Update(msg)
	}
	return m, cmd
}

func (m *teleopModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.speedInputOpen {
		return m.handleSpeedInputKey(msg)
	}
	if m.menuOpen {
		return m.handleMenuKey(msg)
	}

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up":
		m.request(actForward)
	case "down":
		m.request(actBackward)
	case "left":
		m.request(actSpinLeft)
	case "right":
		m.request(actSpinRight)

	case "a":
		m.request(actHeadLeft)
	case "d":
		m.request(actHeadRight)
	case "s":
		m.request(actHeadCenter)

	case "+", "=":
		m.setSpeed(m.speed + teleopSpeedStep)
	case "-", "_":
		m.setSpeed(m.speed - teleopSpeedStep)

	case "t":
		m.menuOpen = true

	case "r":
		m.request(actReconnect)
	}

	return m, nil
}

func (m *teleopModel) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "t", "q":
		m.menuOpen = false
		return m, nil

	case "enter":
		m.menuOpen = false
		if item, ok := m.actionMenu.SelectedItem().(actionItem); ok {
			if item.action == actSetSpeed {
				m.speedInput.SetValue("")
				m.speedInput.Focus()
				m.speedInputOpen = true
			} else {
				m.request(item.action)
			}
		}
		return m, nil
	}

	// Pass through for list navigation
	var cmd tea.Cmd
	m.actionMenu, cmd = m.actionMenu.Update(msg)
	return m, cmd
}

func (m *teleopModel) handleSpeedInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.speedInputOpen = false
		m.speedInput.Blur()
		return m, nil

	case "enter":
		m.speedInputOpen = false
		m.speedInput.Blur()
		value, err := strconv.Atoi(strings.TrimSpace(m.speedInput.Value()))
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Invalid speed %q", m.speedInput.Value()), true)
			return m, nil
		}
		m.setSpeed(value)
		m.addLogEntry(fmt.Sprintf("Speed: %d", m.speed), false)
		return m, nil
	}

	// Pass through to the text input
	var cmd tea.Cmd
	m.speedInput, cmd = m.speedInput.Update(msg)
	return m, cmd
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m teleopModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("ELEGOO CAR TELEOP"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit t=actions r=reconnect", m.connInfo)))
	s.WriteString("\n\n")

	if !m.ready {
		s.WriteString(warningStyle.Render("Connecting and calibrating, keep the car still ..."))
		s.WriteString("\n\n")
		s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))
		s.WriteString("\n")
		return s.String()
	}

	// Status bar
	s.WriteString(m.renderStatusBar(statsLabelStyle, statsValueStyle, warningStyle, boxStyle))
	s.WriteString("\n")

	// Middle pane: speed input, action menu or the drive help
	switch {
	case m.speedInputOpen:
		content := fmt.Sprintf("%s %s  (enter=set esc=cancel)",
			statsLabelStyle.Render("Speed:"),
			m.speedInput.View())
		s.WriteString(boxStyle.Width(m.width - 4).Render(content))
	case m.menuOpen:
		s.WriteString(boxStyle.Width(m.width - 4).Render(m.actionMenu.View()))
	default:
		help := "arrows = drive/spin   a/d = head left/right   s = head center   +/- = speed"
		s.WriteString(boxStyle.Width(m.width - 4).Render(headerStyle.Render(help)))
	}
	s.WriteString("\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))
	s.WriteString("\n")

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m teleopModel) renderStatusBar(statsLabelStyle, statsValueStyle, warningStyle, boxStyle lipgloss.Style) string {
	state := m.state
	if state == "" {
		state = "-"
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s",
		statsLabelStyle.Render("State:"), statsValueStyle.Render(state),
		statsLabelStyle.Render("Head:"), statsValueStyle.Render(fmt.Sprintf("%+d deg", m.headAngle)),
		statsLabelStyle.Render("Speed:"), statsValueStyle.Render(fmt.Sprintf("%d", m.speed)),
	)
	if m.dryRun {
		content += "  " + warningStyle.Render("DRY RUN")
	}

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m teleopModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	timeouts := statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Timeouts))
	if m.stats.Timeouts > 0 {
		timeouts = errorStyle.Render(fmt.Sprintf("%d", m.stats.Timeouts))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Cmds:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.CommandsSent)),
		statsLabelStyle.Render("Confirms:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Confirmations)),
		statsLabelStyle.Render("Replies:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.SensorReplies)),
		statsLabelStyle.Render("Timeouts:"), timeouts,
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f cmd/s", m.stats.CommandRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m teleopModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}

	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

// request hands one action to the session goroutine without blocking
// the render loop. A full queue means the session is inside a long
// maneuver; the key press is dropped rather than freezing the TUI.
func (m *teleopModel) request(action teleopAction) {
	select {
	case m.session.requests <- teleopRequest{action: action, speed: m.speed}:
	default:
		m.addLogEntry("Session busy, input dropped", true)
	}
}

func (m *teleopModel) setSpeed(value int) {
	if value < minTeleopSpeed {
		value = minTeleopSpeed
	}
	if value > maxTeleopSpeed {
		value = maxTeleopSpeed
	}
	m.speed = value
}

func (m *teleopModel) addLogEntry(message string, isError bool) {
	entry := teleopLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}
