// Package csvexport writes kill events to CSV for use outside the app.
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kravein/starfeed/internal/model"
)

// Column order matters: external tooling consumes these by position.
var exportHeader = []string{
	"timestamp", "killers", "victims", "death_type", "vehicle_type",
	"vehicle_model", "location", "weapon", "damage_type", "game_mode",
	"game_version", "description",
}

// WriteEvents writes events to a CSV file, newest first as given.
func WriteEvents(path string, events []*model.KillEvent) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := WriteTo(f, events); err != nil {
		return err
	}
	return f.Close()
}

// WriteTo writes the export to any writer.
func WriteTo(w io.Writer, events []*model.KillEvent) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, e := range events {
		row := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			strings.Join(e.Killers, "; "),
			strings.Join(e.Victims, "; "),
			string(e.DeathType),
			e.VehicleType,
			e.VehicleModel,
			e.Location,
			e.Weapon,
			e.DamageType,
			string(e.GameMode),
			e.GameVersion,
			e.Description,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", e.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
