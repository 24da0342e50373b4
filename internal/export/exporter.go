package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rebeliceyang/lazysearch/internal/models"
)

// ProfilesToCSV exports profiles to a CSV file
func ProfilesToCSV(profiles []models.Profile, path string) error {
	// Create the file
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)

	// Write header
	header := []string{"Name", "Entity Type", "Mode", "Condition", "Groups", "Action", "Created", "Updated"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, p := range profiles {
		mode := "lines"
		condition := p.Condition()
		if p.UseExpression {
			mode = "expression"
			condition = p.Expression
		}

		row := []string{
			p.Name,
			p.EntityType,
			mode,
			condition,
			strings.Join(p.Groups, ", "),
			p.ActionID,
			formatTime(p.CreatedAt),
			formatTime(p.UpdatedAt),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ProfilesToJSON exports profiles to a JSON file
func ProfilesToJSON(profiles []models.Profile, path string) error {
	// Marshal to JSON with pretty printing
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles to JSON: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	return nil
}

// WriteResultJSON writes a result descriptor as indented JSON
func WriteResultJSON(w io.Writer, result models.ResultDescriptor) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// WriteResultCSV writes one row per matching record
func WriteResultCSV(w io.Writer, result models.ResultDescriptor) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Entity Type", "ID"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, id := range result.RecordIDs {
		if err := writer.Write([]string{result.EntityType, strconv.FormatInt(id, 10)}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
