package scanner

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/courtsched/internal/gate"
)

// Render writes the consolidated availability report: a window header, then a
// per-day section with one line per hour that has free courts.
func Render(w io.Writer, reports []DayReport, startHour, endHour int) {
	total := 0
	for _, r := range reports {
		total += r.Total
	}
	if total == 0 {
		fmt.Fprintf(w, "No available courts over the next %d day(s).\n", len(reports))
		return
	}

	first, last := reports[0].Date, reports[len(reports)-1].Date
	if first == last {
		fmt.Fprintf(w, "Available Courts [%s (%s)] (%02d:00–%02d:00)\n",
			first, weekday(first), startHour, endHour-1)
	} else {
		fmt.Fprintf(w, "Available Courts [%s (%s) → %s (%s)] (%02d:00–%02d:00)\n",
			first, weekday(first), last, weekday(last), startHour, endHour-1)
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))

	for _, r := range reports {
		if r.Total == 0 {
			continue
		}
		fmt.Fprintf(w, "\n===== %s (%s, %s) =====\n", r.Date, weekday(r.Date), relativeDay(r.Date))
		for _, hour := range r.HoursSorted() {
			names := make([]string, 0, len(r.Hours[hour]))
			for _, c := range r.Hours[hour] {
				names = append(names, c.Name)
			}
			fmt.Fprintf(w, "%02d:00  —  %s\n", hour, strings.Join(names, ", "))
		}
	}
	fmt.Fprintf(w, "\nTotal available slots: %d\n", total)
}

func weekday(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return ""
	}
	return d.Format("Mon")
}

func relativeDay(date string) string {
	d, err := time.ParseInLocation("2006-01-02", date, gate.Location())
	if err != nil {
		return ""
	}
	today, _ := time.ParseInLocation("2006-01-02", gate.DateString(0), gate.Location())
	diff := int(d.Sub(today).Hours() / 24)
	switch {
	case diff == 0:
		return "today"
	case diff == 1:
		return "tomorrow"
	case diff > 1:
		return fmt.Sprintf("in %d days", diff)
	default:
		return fmt.Sprintf("%d day(s) ago", -diff)
	}
}
