package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mkarlsen/stint/internal/interval"
	"github.com/mkarlsen/stint/internal/store"
)

type jsonExport struct {
	ExportedAt string         `json:"exported_at"`
	Count      int            `json:"count"`
	Intervals  []jsonInterval `json:"intervals"`
}

type jsonInterval struct {
	ID         int64  `json:"id"`
	Project    string `json:"project"`
	ProjectID  int64  `json:"project_id"`
	StartTime  string `json:"start_time"`
	StopTime   string `json:"stop_time,omitempty"`
	DurationMS int64  `json:"duration_milliseconds"`
	Duration   string `json:"duration"`
	Registered bool   `json:"registered"`
}

func ToJSON(intervals []interval.TimeInterval, projects map[int64]*store.Project, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(intervals),
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

		export.Intervals = append(export.Intervals, jsonInterval{
			ID:         in.ID,
			Project:    projectName,
			ProjectID:  in.ProjectID,
			StartTime:  in.StartTime().Format(time.RFC3339),
			StopTime:   stopStr,
			DurationMS: in.Millis(),
			Duration:   formatMillis(in.Millis()),
			Registered: in.Registered,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
