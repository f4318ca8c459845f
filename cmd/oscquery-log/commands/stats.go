package commands

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/plml/oscquery-go/pkg/log"
)

// Stats aggregates a log file.
type Stats struct {
	TotalEvents       int
	EventsByChannel   map[log.Channel]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Sessions          map[string]*SessionStats
	Addresses         map[string]int
	Rejected          int
	Errors            int
	Start, End        time.Time
}

// SessionStats summarizes one session (or the control listener).
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Remote    string
}

// Collect reads every event of path into a Stats.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByChannel:   make(map[log.Channel]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Sessions:          make(map[string]*SessionStats),
		Addresses:         make(map[string]int),
	}
	err = each(reader, func(event log.Event) error {
		stats.add(event)
		return nil
	})
	return stats, err
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByChannel[event.Channel]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}

	if event.SessionID != "" {
		sess, ok := s.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if sess.Remote == "" {
			sess.Remote = event.RemoteAddr
		}
	}

	if event.Message != nil {
		s.Addresses[event.Message.Address]++
		if event.Message.Rejection != "" {
			s.Rejected++
		}
	}
	if event.Error != nil {
		s.Errors++
	}
}

// RunStats prints statistics about path.
func RunStats(path string, top int, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats, top)
	return nil
}

func printStats(w io.Writer, stats *Stats, top int) {
	fmt.Fprintln(w, "=== OSCQuery Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", stats.Start.Format(time.RFC3339), stats.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.End.Sub(stats.Start).Round(time.Second))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Channel:")
	for _, ch := range []log.Channel{log.ChannelQuery, log.ChannelControl, log.ChannelSubscription, log.ChannelDiscovery} {
		if n := stats.EventsByChannel[ch]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", ch.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryCommand, log.CategoryState, log.CategoryError} {
		if n := stats.EventsByCategory[cat]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := stats.EventsByDirection[dir]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	ids := slices.SortedFunc(maps.Keys(stats.Sessions), func(a, b string) int {
		return stats.Sessions[a].FirstSeen.Compare(stats.Sessions[b].FirstSeen)
	})
	for _, id := range ids {
		sess := stats.Sessions[id]
		fmt.Fprintf(w, "  [%s] %d events, duration %s", shortID(id), sess.Events,
			sess.LastSeen.Sub(sess.FirstSeen).Round(time.Millisecond))
		if sess.Remote != "" {
			fmt.Fprintf(w, ", remote %s", sess.Remote)
		}
		fmt.Fprintln(w)
	}

	if len(stats.Addresses) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top Addresses:")
		for _, addr := range topAddresses(stats.Addresses, top) {
			fmt.Fprintf(w, "  %-30s %d\n", addr, stats.Addresses[addr])
		}
	}

	if stats.Rejected > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Rejected Messages: %d\n", stats.Rejected)
	}
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

// topAddresses returns up to n addresses, most frequent first. n <= 0 means all.
func topAddresses(counts map[string]int, n int) []string {
	addrs := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if n > 0 && len(addrs) > n {
		addrs = addrs[:n]
	}
	return addrs
}
