package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/PolarWolf314/tosk/internal/backup"
	"github.com/PolarWolf314/tosk/internal/remote"
)

var (
	reportTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("62")).
				Bold(true).
				Margin(0, 0, 1, 0)

	reportContainerStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("244")).
				Padding(0, 1)

	reportHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244")).
				Bold(true)

	fileColumnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(28)
	statusColumnStyle = lipgloss.NewStyle().Width(12)
	modeColumnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(11)
	detailStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	succeededStyle = statusColumnStyle.Copy().Foreground(lipgloss.Color("70"))
	failedStyle    = statusColumnStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	pendingStyle   = statusColumnStyle.Copy().Foreground(lipgloss.Color("214"))

	summaryStyle = lipgloss.NewStyle().Margin(1, 0, 0, 0)
)

// renderReport lays out one row per file, then a summary line.
func renderReport(report *backup.Report, dryRun bool) string {
	title := "Backup"
	if report.Op == backup.OpRestore {
		title = "Restore"
		if dryRun {
			title += " (dry run)"
		}
	}

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Left,
		fileColumnStyle.Render("FILE"),
		statusColumnStyle.Render("STATUS"),
		modeColumnStyle.Render("MODE"),
		reportHeaderStyle.Render("DETAIL"),
	)}
	rows[0] = reportHeaderStyle.Render(rows[0])

	for _, res := range report.Results {
		mode := "plain"
		if res.Encrypted {
			mode = "encrypted"
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			fileColumnStyle.Render(truncate(res.Name, 27)),
			statusStyle(res.Status).Render(res.Status.String()),
			modeColumnStyle.Render(mode),
			detailStyle.Render(resultDetail(res, dryRun)),
		))
	}

	failed := len(report.Failed())
	summary := fmt.Sprintf("%d of %d files %s in %s", len(report.Succeeded()), len(report.Results), pastTense(report.Op), report.Duration().Round(time.Millisecond))
	if failed > 0 {
		summary += failedStyle.Copy().Width(0).Render(fmt.Sprintf(", %d failed", failed))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		reportTitleStyle.Render(title),
		reportContainerStyle.Render(strings.Join(rows, "\n")),
		summaryStyle.Render(summary),
	)
}

// renderEntries lists remote files.
func renderEntries(repo string, entries []remote.Entry) string {
	rows := []string{reportHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left,
		fileColumnStyle.Copy().Width(40).Render("PATH"),
		modeColumnStyle.Copy().Width(10).Render("SIZE"),
		"SHA",
	))}
	for _, e := range entries {
		sha := e.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			fileColumnStyle.Copy().Width(40).Render(truncate(e.Path, 39)),
			modeColumnStyle.Copy().Width(10).Render(formatSize(e.Size)),
			detailStyle.Render(sha),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		reportTitleStyle.Render(repo),
		reportContainerStyle.Render(strings.Join(rows, "\n")),
	)
}

func statusStyle(s backup.Status) lipgloss.Style {
	switch s {
	case backup.Succeeded:
		return succeededStyle
	case backup.Failed:
		return failedStyle
	default:
		return pendingStyle
	}
}

func resultDetail(res *backup.Result, dryRun bool) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	switch {
	case res.Path != "":
		return res.Path
	case dryRun:
		return fmt.Sprintf("%s, not written", formatSize(int64(len(res.Content))))
	case res.Version != "" && len(res.Version) > 7:
		return res.RemotePath + " @ " + res.Version[:7]
	default:
		return res.RemotePath
	}
}

func pastTense(op backup.Operation) string {
	if op == backup.OpRestore {
		return "restored"
	}
	return "backed up"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
