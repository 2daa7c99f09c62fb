package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/mkarlsen/stint/internal/interval"
	"github.com/mkarlsen/stint/internal/store"
	"github.com/mkarlsen/stint/internal/timecalc"
)

func ToCSV(intervals []interval.TimeInterval, projects map[int64]*store.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"ID", "Project", "Start", "Stop", "Duration (ms)", "Duration", "Registered"}); err != nil {
		return err
	}

	for _, in := range intervals {
		projectName := "Unknown"
		if p, ok := projects[in.ProjectID]; ok {
			projectName = p.Name
		}
		stopStr := ""
		if !in.IsActive() {
			stopStr = in.StopTime().Format(time.RFC3339)
		}

		row := []string{
			fmt.Sprintf("%d", in.ID),
			projectName,
			in.StartTime().Format(time.RFC3339),
			stopStr,
			fmt.Sprintf("%d", in.Millis()),
			formatMillis(in.Millis()),
			fmt.Sprintf("%t", in.Registered),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatMillis(ms int64) string {
	hm, err := timecalc.Calculate(ms)
	if err != nil {
		return ""
	}
	return timecalc.Format(hm, timecalc.ModeClock)
}
