package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/plml/oscquery-go/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the matching events of path in human-readable form.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	return each(reader, func(event log.Event) error {
		formatEvent(w, event)
		return nil
	})
}

// formatEvent writes one event as a header line plus indented details.
//
//	2026-01-28T10:15:32.123456Z [9f1c2a3b] IN  CONTROL Message
//	  Address: /hands/left/x
//	  Args: [0.25]
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s [%s] %-3s %s %s\n",
		ts, shortID(event.SessionID), event.Direction, event.Channel, eventLabel(event))

	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}

	switch {
	case event.Message != nil:
		fmt.Fprintf(w, "  Address: %s\n", event.Message.Address)
		if len(event.Message.Args) > 0 {
			fmt.Fprintf(w, "  Args: %s\n", formatArgs(event.Message.Args))
		}
		if event.Message.Rejection != "" {
			fmt.Fprintf(w, "  Rejected: %s\n", event.Message.Rejection)
		}
	case event.Command != nil:
		fmt.Fprintf(w, "  Command: %s\n", event.Command.Command)
		if event.Command.Data != "" {
			fmt.Fprintf(w, "  Data: %s\n", event.Command.Data)
		}
	case event.StateChange != nil:
		sc := event.StateChange
		fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
		}
	}

	fmt.Fprintln(w)
}

func eventLabel(event log.Event) string {
	switch {
	case event.Message != nil && event.Message.Rejection != "":
		return "Rejected"
	case event.Message != nil:
		return "Message"
	case event.Command != nil:
		return "Command"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok {
			parts[i] = fmt.Sprintf("%q", s)
			continue
		}
		parts[i] = fmt.Sprint(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// shortID returns the first 8 characters of a session ID.
func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
