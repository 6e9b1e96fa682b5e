package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lazypower/bitrot/internal/engine"
	"github.com/lazypower/bitrot/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	coreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var historyLimit int

// healthStyle colors a record by how much of it is still legible.
func healthStyle(in engine.RecordInfo) lipgloss.Style {
	switch {
	case !in.Readable:
		return errStyle
	case in.Size == 0 || in.Corruption > 0.1:
		return warnStyle
	default:
		return okStyle
	}
}

func renderRecord(in engine.RecordInfo) string {
	id := in.ID
	if in.Category == store.CategoryCore {
		id = coreStyle.Render(id)
	}
	state := "ok"
	switch {
	case !in.Readable:
		state = "unreadable"
	case in.Size == 0:
		state = "empty"
	}
	body := in.Preview
	if !in.Readable {
		body = in.Error
	}
	return fmt.Sprintf("%s %s %s %s",
		id,
		mutedStyle.Render(fmt.Sprintf("%5.1fd %5dB", in.AgeDays, in.Size)),
		healthStyle(in).Render(fmt.Sprintf("%-10s", state)),
		body,
	)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the memory bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{noSeed: true})
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.eng.Inspect()
		if err != nil {
			return err
		}
		st := a.eng.Summarize(infos)

		fill := okStyle
		if st.MaxRegular > 0 && st.Regular >= st.MaxRegular {
			fill = warnStyle
		}
		lines := []string{
			titleStyle.Render("💾 bitrot memory bank"),
			fmt.Sprintf("backend      %s", a.cfg.Storage.Backend),
			fmt.Sprintf("core         %s", coreStyle.Render(fmt.Sprint(st.Core))),
			fmt.Sprintf("regular      %s", fill.Render(fmt.Sprintf("%d / %d", st.Regular, st.MaxRegular))),
			fmt.Sprintf("bytes        %d", st.Bytes),
			fmt.Sprintf("empty        %d", st.Empty),
			fmt.Sprintf("unreadable   %s", errStyle.Render(fmt.Sprint(st.Unreadable))),
		}
		if a.db != nil {
			if n, err := a.db.CountEvents(string(engine.EventCorrupt)); err == nil {
				lines = append(lines, fmt.Sprintf("corruptions  %d", n))
			}
			if n, err := a.db.CountEvents(string(engine.EventEvict)); err == nil {
				lines = append(lines, fmt.Sprintf("overwrites   %d", n))
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show journaled engine events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(openOpts{noSeed: true})
		if err != nil {
			return err
		}
		defer a.Close()
		if a.db == nil {
			return fmt.Errorf("journal is disabled")
		}

		var events []store.Event
		if len(args) == 1 {
			events, err = a.db.RecordEvents(args[0])
		} else {
			events, err = a.db.RecentEvents(historyLimit)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No events recorded.")
			return nil
		}
		for _, ev := range events {
			when := time.UnixMilli(ev.CreatedAt).Format(time.DateTime)
			fmt.Fprintf(out, "%s %s %s %s\n",
				mutedStyle.Render(when),
				kindStyle(ev.Kind).Render(fmt.Sprintf("%-11s", ev.Kind)),
				ev.RecordID,
				mutedStyle.Render(ev.Detail),
			)
		}

		if len(args) == 0 {
			sessions, err := a.db.RecentChatSessions(5)
			if err == nil && len(sessions) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, titleStyle.Render("recent chats"))
				for _, s := range sessions {
					fmt.Fprintf(out, "  %s %-9s %3d turns, %d decay, %d aging\n",
						s.SessionID, s.Status, s.TurnCount, s.DecayCycles, s.AgingCycles)
				}
			}
		}
		return nil
	},
}

func kindStyle(kind string) lipgloss.Style {
	switch engine.EventKind(kind) {
	case engine.EventCorrupt, engine.EventReadError, engine.EventWriteError:
		return errStyle
	case engine.EventEvict, engine.EventQuotaFull:
		return warnStyle
	case engine.EventSeed:
		return coreStyle
	default:
		return okStyle
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of recent events")
}
