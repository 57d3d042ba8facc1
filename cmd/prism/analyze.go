package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/prism/internal/logging"
	"github.com/abelbrown/prism/internal/model"
	"github.com/abelbrown/prism/internal/otel"
	"github.com/abelbrown/prism/internal/pipeline"
	"github.com/abelbrown/prism/internal/report"
	"github.com/abelbrown/prism/internal/ui/runview"
)

const dateLayout = "2006-01-02"

func newAnalyzeCommand(g *globals) *cobra.Command {
	var (
		from, to  string
		sources   []string
		tracePath string
		timeout   time.Duration
		progress  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <query>",
		Short: "Ingest coverage for a query, cluster it and score each source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(strings.Join(args, " "), from, to, sources)
			if err != nil {
				return err
			}

			deps, cleanup, err := buildDeps(g.cfg, tracePath, progress)
			if err != nil {
				return err
			}
			defer cleanup()

			orch, err := pipeline.New(deps)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var res *model.AnalysisResult
			if progress {
				res, err = analyzeWithProgress(ctx, cmd.ErrOrStderr(), orch, deps.Trace, q)
			} else {
				res, err = orch.Analyze(ctx, q)
			}
			if err != nil {
				return fmt.Errorf("analyze %q: %w", q.Text, err)
			}
			return report.Analysis(cmd.OutOrStdout(), g.out, res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&from, "from", "", "earliest publication date (YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "latest publication date (YYYY-MM-DD)")
	f.StringSliceVar(&sources, "source", nil, "restrict to source (repeatable)")
	f.StringVar(&tracePath, "trace", "", "write a JSONL pipeline trace to this file")
	f.DurationVar(&timeout, "timeout", 0, "abort the run after this long (0 for no limit)")
	f.BoolVar(&progress, "progress", false, "show live stage progress on stderr")
	return cmd
}

// analyzeWithProgress runs the analysis while a run view on w follows
// the trace. Quitting the view cancels the run.
func analyzeWithProgress(ctx context.Context, w io.Writer, orch *pipeline.Orchestrator, trace *otel.Logger, q pipeline.Query) (*model.AnalysisResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(runview.New(q.Text, cancel), tea.WithOutput(w), tea.WithContext(ctx))
	trace.Tap(func(e otel.Event) { prog.Send(runview.EventMsg(e)) })

	viewDone := make(chan error, 1)
	go func() {
		_, err := prog.Run()
		viewDone <- err
	}()

	res, err := orch.Analyze(ctx, q)
	prog.Send(runview.DoneMsg{Err: err})
	if verr := <-viewDone; verr != nil && !errors.Is(verr, tea.ErrProgramKilled) {
		logging.Warn("progress view failed", "err", verr)
	}
	return res, err
}

// buildQuery validates the CLI inputs into a pipeline query.
func buildQuery(text, from, to string, sources []string) (pipeline.Query, error) {
	q := pipeline.Query{Text: strings.TrimSpace(text), Sources: sources}
	if q.Text == "" {
		return q, fmt.Errorf("query must not be empty")
	}
	var err error
	if q.From, err = parseDate("from", from); err != nil {
		return q, err
	}
	if q.To, err = parseDate("to", to); err != nil {
		return q, err
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return q, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return q, nil
}

func parseDate(flag, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", flag, s)
	}
	return &t, nil
}
