package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/plml/oscquery-go/pkg/log"
)

// RunExport writes the matching events of path as JSON lines or CSV to
// output, or to w when output is empty.
func RunExport(path, format, output string, opts FilterOptions, w io.Writer) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	return each(reader, func(event log.Event) error {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		return nil
	})
}

var csvHeader = []string{"timestamp", "session_id", "remote", "direction", "channel", "category", "type", "subject", "detail"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	err := each(reader, func(event log.Event) error {
		subject, detail := csvFields(event)
		row := []string{
			event.Timestamp.UTC().Format(timestampLayout),
			event.SessionID,
			event.RemoteAddr,
			event.Direction.String(),
			event.Channel.String(),
			event.Category.String(),
			eventLabel(event),
			subject,
			detail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// csvFields picks the subject and detail columns for an event.
func csvFields(event log.Event) (string, string) {
	switch {
	case event.Message != nil:
		detail := formatArgs(event.Message.Args)
		if event.Message.Rejection != "" {
			detail = event.Message.Rejection
		}
		return event.Message.Address, detail
	case event.Command != nil:
		return event.Command.Command, event.Command.Data
	case event.StateChange != nil:
		return event.StateChange.Entity.String(), event.StateChange.NewState
	case event.Error != nil:
		return event.Error.Context, event.Error.Message
	default:
		return "", ""
	}
}
