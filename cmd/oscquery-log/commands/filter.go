// Package commands implements the oscquery-log commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/plml/oscquery-go/pkg/log"
)

// FilterOptions holds the textual selection criteria shared by view,
// export and filter.
type FilterOptions struct {
	Session   string
	Direction string
	Channel   string
	Category  string
	Address   string
	TimeStart string
	TimeEnd   string
}

// Build parses the options into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	f := log.Filter{
		SessionID:     o.Session,
		AddressPrefix: o.Address,
	}

	if o.Direction != "" {
		d, ok := log.ParseDirection(o.Direction)
		if !ok {
			return f, fmt.Errorf("invalid direction: %s (must be in or out)", o.Direction)
		}
		f.Direction = &d
	}
	if o.Channel != "" {
		c, ok := log.ParseChannel(o.Channel)
		if !ok {
			return f, fmt.Errorf("invalid channel: %s (must be query, control, subscription or discovery)", o.Channel)
		}
		f.Channel = &c
	}
	if o.Category != "" {
		c, ok := log.ParseCategory(o.Category)
		if !ok {
			return f, fmt.Errorf("invalid category: %s (must be message, command, state or error)", o.Category)
		}
		f.Category = &c
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start format: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end format: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

// RunFilter copies the events of path that match opts into output and
// reports how many were written.
func RunFilter(path, output string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.Build()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("failed to create output log: %w", err)
	}
	defer logger.Close()

	count := 0
	err = each(reader, func(event log.Event) error {
		logger.Log(event)
		count++
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, output)
	return nil
}

// each calls fn for every remaining event of reader.
func each(reader *log.Reader, fn func(log.Event) error) error {
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}
