// ecatctl is a live diagnostics view of a port's slot occupancy and
// redundancy status, in the same bubbletea/lipgloss TUI style as the
// teacher's interactive CLI, repurposed from a remote shell prompt to a
// read-only status display.
package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/opalrt/ecatcore/internal/ecat"
	"github.com/opalrt/ecatcore/internal/ecatlog"
	"github.com/opalrt/ecatcore/internal/netlink"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4FC1FF"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#569CD6"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6A9955"))
	allocStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CE9178"))
	txStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#DCDCAA"))
	rcvdStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4FC1FF"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B5CEA8"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CE9178"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F44747"))
)

type tickMsg time.Time

type model struct {
	port  *ecat.Port
	stats ecat.Stats
}

func newModel(port *ecat.Port) model {
	return model{port: port, stats: port.Stats()}
}

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case tickMsg:
		m.stats = m.port.Stats()
		return m, tick()
	}
	return m, nil
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("ecatctl — port status") + "\n")
	s.WriteString(helpStyle.Render("q to quit\n\n"))

	mode := "single"
	if m.stats.Redundant {
		mode = "redundant (double)"
	}
	s.WriteString(labelStyle.Render("mode:      ") + mode + "\n")
	s.WriteString(labelStyle.Render("last idx:  ") + fmt.Sprintf("%d", m.stats.LastIndex) + "\n\n")

	s.WriteString(labelStyle.Render("slot  primary   secondary\n"))
	for i := range m.stats.PrimarySlots {
		pri := renderState(m.stats.PrimarySlots[i])
		sec := "-"
		if m.stats.Redundant {
			sec = renderState(m.stats.SecondarySlots[i])
		}
		s.WriteString(fmt.Sprintf("%4d  %-9s %s\n", i, pri, sec))
	}

	return s.String()
}

func renderState(s ecat.SlotState) string {
	switch s {
	case ecat.Empty:
		return emptyStyle.Render(s.String())
	case ecat.Alloc:
		return allocStyle.Render(s.String())
	case ecat.Tx:
		return txStyle.Render(s.String())
	case ecat.Rcvd:
		return rcvdStyle.Render(s.String())
	case ecat.Complete:
		return doneStyle.Render(s.String())
	default:
		return errorStyle.Render(s.String())
	}
}

func main() {
	ifname := flag.String("ifname", "eth0", "interface to attach and monitor")
	flag.Parse()

	port := ecat.NewPort()
	if err := port.SetupNIC(*ifname, false, ecat.WithLinkFactory(ecat.LinkFactory(netlink.NewRaw))); err != nil {
		ecatlog.Fatal("setup_nic failed", "ifname", *ifname, "err", err)
	}
	defer port.CloseNIC()

	if _, err := tea.NewProgram(newModel(port), tea.WithAltScreen()).Run(); err != nil {
		ecatlog.Fatal("ecatctl: tui exited with error", "err", err)
	}
}
