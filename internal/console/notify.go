package console

import (
	"fmt"
	"io"
	"os"

	"ssomgr/internal/observability"
)

// Notifier renders transient user-facing notifications. Messages go to the
// console stream with a severity marker; failures are also logged.
type Notifier struct {
	out    io.Writer
	logger observability.Logger
}

// NewNotifier creates a Notifier writing to out. A nil out defaults to stderr.
func NewNotifier(out io.Writer, logger observability.Logger) *Notifier {
	if out == nil {
		out = os.Stderr
	}
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	return &Notifier{out: out, logger: logger}
}

// Success reports a completed operation.
func (n *Notifier) Success(format string, args ...any) {
	fmt.Fprintf(n.out, "ok: "+format+"\n", args...)
}

// Info reports neutral progress.
func (n *Notifier) Info(format string, args ...any) {
	fmt.Fprintf(n.out, "info: "+format+"\n", args...)
}

// Error reports a failed operation and logs it.
func (n *Notifier) Error(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(n.out, "error: %s\n", msg)
	n.logger.Error(msg)
}
