package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/store"
)

type jsonExport struct {
	ExportedAt string         `json:"exported_at"`
	Count      int            `json:"count"`
	Activities []jsonActivity `json:"activities"`
}

type jsonActivity struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueAt       string `json:"due_at"`
	DueAtMillis int64  `json:"due_at_ms"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	HasReminder bool   `json:"has_reminder"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	FocusMillis int64  `json:"focus_ms"`
	Focus       string `json:"focus"`
}

func ToJSON(activities []store.Activity, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	return WriteJSON(f, activities)
}

func WriteJSON(w io.Writer, activities []store.Activity) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(activities),
		Activities: []jsonActivity{},
	}

	for _, a := range activities {
		export.Activities = append(export.Activities, jsonActivity{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			DueAt:       a.DueAt.Local().Format(time.RFC3339),
			DueAtMillis: a.DueAt.UnixMilli(),
			Priority:    a.Priority.String(),
			Category:    string(a.Category),
			HasReminder: a.HasReminder,
			Completed:   a.Completed,
			CreatedAt:   a.CreatedAt.Local().Format(time.RFC3339),
			FocusMillis: a.Accumulated.Milliseconds(),
			Focus:       focus.FormatClock(a.Accumulated),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
