package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	httpx "github.com/cwrk-planet/videomeet-signaling/internal/transport/http"
	"github.com/cwrk-planet/videomeet-signaling/internal/transport/ws"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	colorPrimary = lipgloss.Color("#22d3ee")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

const timeLayout = "2006-01-02 15:04:05"

func PrintError(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), errorStyle.Render(msg))
}

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warningStyle.Render("!"), warningStyle.Render(fmt.Sprintf(format, args...)))
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func occupancy(r httpx.RoomItem) string {
	if r.Capacity <= 0 {
		return strconv.Itoa(len(r.Participants)) + "/∞"
	}
	return fmt.Sprintf("%d/%d", len(r.Participants), r.Capacity)
}

// renderRooms печатает список комнат таблицей.
func renderRooms(w io.Writer, rooms []httpx.RoomItem) {
	if len(rooms) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no rooms"))
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Room", "Participants", "Active", "Created", "Updated"})
	for _, r := range rooms {
		t.AppendRow(table.Row{r.RoomID, occupancy(r), r.IsActive, r.CreatedAt.Local().Format(timeLayout), r.UpdatedAt.Local().Format(timeLayout)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d rooms", len(rooms))})
	t.Render()
}

func renderRoom(w io.Writer, r httpx.RoomItem) {
	head := fmt.Sprintf("%s  %s\ncapacity %s · created %s",
		titleStyle.Render(r.RoomID),
		mutedStyle.Render(activeLabel(r.IsActive)),
		occupancy(r),
		r.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintln(w, boxStyle.Render(head))

	if len(r.Participants) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("nobody is in the room"))
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Connection", "User", "Joined"})
	for i, p := range r.Participants {
		user := p.UserID
		if user == "" {
			user = "-"
		}
		t.AppendRow(table.Row{i + 1, p.ConnectionID, user, p.JoinedAt.Local().Format(timeLayout)})
	}
	t.Render()
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func renderStats(w io.Writer, s ws.Stats) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Open connections", s.Connections},
		{"Accepted", s.Accepted},
		{"Delivered events", s.Delivered},
		{"Dropped events", s.Dropped},
	})
	t.Render()
}

// describeEvent формирует строку для watch.
func describeEvent(ev Event) string {
	label := titleStyle.Render(string(ev.Type))
	payload := strings.TrimSpace(string(ev.Payload))
	if len(payload) > 160 {
		payload = payload[:157] + "..."
	}
	if ev.Type == "error" {
		label = errorStyle.Render(string(ev.Type))
	}
	return fmt.Sprintf("%s %s %s", mutedStyle.Render(time.Now().Format("15:04:05.000")), label, payload)
}

// ProbeReport is what a probe run measured.
type ProbeReport struct {
	RoomID    string
	Signaling time.Duration
	Connect   time.Duration
	RTTs      []time.Duration
	Lost      int
}

func (r ProbeReport) stats() (minRTT, avgRTT, maxRTT time.Duration) {
	if len(r.RTTs) == 0 {
		return 0, 0, 0
	}
	minRTT = r.RTTs[0]
	var sum time.Duration
	for _, d := range r.RTTs {
		sum += d
		minRTT = min(minRTT, d)
		maxRTT = max(maxRTT, d)
	}
	return minRTT, sum / time.Duration(len(r.RTTs)), maxRTT
}

func renderProbe(w io.Writer, r ProbeReport) {
	lo, avg, hi := r.stats()
	t := newTable(w)
	t.SetTitle("Probe " + r.RoomID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Join + offer/answer", r.Signaling.Round(time.Millisecond)},
		{"Data channel open", r.Connect.Round(time.Millisecond)},
		{"Pings answered", fmt.Sprintf("%d/%d", len(r.RTTs), len(r.RTTs)+r.Lost)},
		{"RTT min/avg/max", fmt.Sprintf("%s / %s / %s", lo.Round(time.Microsecond), avg.Round(time.Microsecond), hi.Round(time.Microsecond))},
	})
	t.Render()
}
