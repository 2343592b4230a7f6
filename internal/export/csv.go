package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/cumpli/internal/focus"
	"github.com/sadopc/cumpli/internal/store"
)

var csvHeader = []string{
	"ID", "Title", "Description", "Due", "Priority", "Category",
	"Reminder", "Completed", "Created", "Focus (s)", "Focus",
}

func ToCSV(activities []store.Activity, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, activities)
}

// WriteCSV writes one header row and one row per activity.
func WriteCSV(out io.Writer, activities []store.Activity) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, a := range activities {
		row := []string{
			strconv.FormatInt(a.ID, 10),
			a.Title,
			a.Description,
			a.DueAt.Local().Format(time.RFC3339),
			a.Priority.String(),
			string(a.Category),
			strconv.FormatBool(a.HasReminder),
			strconv.FormatBool(a.Completed),
			a.CreatedAt.Local().Format(time.RFC3339),
			strconv.FormatInt(int64(a.Accumulated/time.Second), 10),
			focus.FormatClock(a.Accumulated),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
