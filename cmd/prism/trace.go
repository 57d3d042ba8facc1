package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// traceRecord mirrors otel.Event for decoding. Decoding JSONL directly
// keeps old trace files readable after the event schema grows.
type traceRecord struct {
	Time    time.Time      `json:"t"`
	Level   string         `json:"level"`
	Kind    string         `json:"kind"`
	Comp    string         `json:"comp"`
	RunID   string         `json:"run_id"`
	DurMs   float64        `json:"dur_ms"`
	Count   int            `json:"count"`
	Query   string         `json:"query"`
	Cluster string         `json:"cluster"`
	Article string         `json:"article"`
	Err     string         `json:"err"`
	Msg     string         `json:"msg"`
	Extra   map[string]any `json:"extra"`
}

// traceFilter selects trace lines.
type traceFilter struct {
	kind  string
	level string
	comp  string
	run   string
}

func (f traceFilter) match(ev traceRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.run != "" && !strings.HasPrefix(ev.RunID, f.run) {
		return false
	}
	return true
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func newTraceCommand() *cobra.Command {
	var (
		filter  traceFilter
		tail    int
		rawJSON bool
	)
	cmd := &cobra.Command{
		Use:   "trace <file>",
		Short: "Show events from a JSONL pipeline trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open trace: %w", err)
			}
			defer f.Close()

			lines, err := readTailLines(f, tail, filter.match)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, l := range lines {
				if rawJSON {
					fmt.Fprintln(out, string(l.raw))
				} else {
					fmt.Fprintln(out, formatTrace(l.ev))
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&tail, "tail", 50, "number of matching events to show")
	f.StringVar(&filter.kind, "kind", "", "event kind prefix (e.g. 'bias')")
	f.StringVar(&filter.level, "level", "", "minimum level: debug, info, warn, error")
	f.StringVar(&filter.comp, "comp", "", "component name")
	f.StringVar(&filter.run, "run", "", "run ID prefix")
	f.BoolVar(&rawJSON, "json", false, "print raw JSON lines")
	return cmd
}

func formatTrace(ev traceRecord) string {
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-8s] %-18s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.Cluster != "" {
		parts = append(parts, "cluster="+shortRef(ev.Cluster))
	}
	if ev.Article != "" {
		parts = append(parts, "article="+shortRef(ev.Article))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

type parsedLine struct {
	ev  traceRecord
	raw []byte
}

// readTailLines returns the last n lines of r matching the filter.
// Malformed lines are skipped.
func readTailLines(r io.Reader, n int, match func(traceRecord) bool) ([]parsedLine, error) {
	if n <= 0 {
		return nil, nil
	}
	scanner := bufio.NewScanner(r)
	// Extra maps can make lines long
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	ring := make([]parsedLine, 0, n)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev traceRecord
		if json.Unmarshal(raw, &ev) != nil || !match(ev) {
			continue
		}
		line := parsedLine{ev: ev, raw: append([]byte(nil), raw...)}
		if len(ring) < n {
			ring = append(ring, line)
		} else {
			copy(ring, ring[1:])
			ring[n-1] = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return ring, nil
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}

func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
