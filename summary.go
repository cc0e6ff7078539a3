package pagetran

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// WriteSummary prints a human-readable report of a run.
func WriteSummary(w io.Writer, r *RunResult) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s: %d file(s) to %s via %s\n",
		r.RunID, len(r.Files), r.TargetLang, strings.Join(r.Providers, ", "))

	for _, fr := range r.Files {
		switch fr.State {
		case StateDone:
			fmt.Fprintf(&b, "  translated   %s -> %s (%d spans, %d cached, %s, %s -> %s)\n",
				fr.Path, fr.Output, fr.Spans, fr.Cached, fr.Provider,
				humanize.Bytes(uint64(fr.InputBytes)), humanize.Bytes(uint64(fr.OutputBytes)))
		case StateSkipped:
			fmt.Fprintf(&b, "  skipped      %s (%s)\n", fr.Path, fr.Reason)
		case StateFailed:
			fmt.Fprintf(&b, "  failed       %s during %s: %s\n", fr.Path, fr.FailedIn, fr.Reason)
		default:
			fmt.Fprintf(&b, "  not started  %s\n", fr.Path)
		}
	}

	fmt.Fprintf(&b, "Translated: %d  Skipped: %d  Failed: %d  Not started: %d\n",
		r.Translated, r.Skipped, r.Failed, r.NotStarted)

	_, err := io.WriteString(w, b.String())
	return err
}
