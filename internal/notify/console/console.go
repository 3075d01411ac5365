// Package console prints newly emitted entries to a writer, for a human
// watching the monitor's standard output.
package console

import (
	"context"
	"fmt"
	"io"

	"github.com/linnemanlabs/sift/internal/triage"
)

// Notifier writes a short summary line per emitted entry.
type Notifier struct {
	w io.Writer
}

// New creates a console notifier writing to w.
func New(w io.Writer) *Notifier {
	return &Notifier{w: w}
}

// EntriesEmitted prints a summary of the entries appended by a pass.
func (n *Notifier) EntriesEmitted(_ context.Context, entries []*triage.Entry) {
	fmt.Fprintf(n.w, "wrote %d new process(es)\n", len(entries))
	for _, e := range entries {
		net := ""
		if len(e.ExternalConnections) > 0 {
			net = fmt.Sprintf(" [NET: %d ext]", len(e.ExternalConnections))
		}
		fmt.Fprintf(n.w, "  %s - %s (%s) [%s]%s\n", e.Timestamp, e.Name, pidSummary(e.PIDs), e.Risk, net)
	}
}

func pidSummary(pids []int) string {
	switch len(pids) {
	case 0:
		return "?"
	case 1:
		return fmt.Sprintf("PID %d", pids[0])
	default:
		return fmt.Sprintf("PIDs %v", pids)
	}
}
