package reporter

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/srunlabs/srun/pkg/status"
)

// Text is the default Reporter: stdout/stderr lines go to the
// corresponding standard stream, colorized with fatih/color the way
// lazydocker's utils.ColoredString colors its own CLI output; status
// transitions go to a *logrus.Entry at Info level.
type Text struct {
	mu     sync.Mutex
	Stdout io.Writer
	Stderr io.Writer
	Log    *logrus.Entry

	timestamp *color.Color
}

var _ Reporter = (*Text)(nil)

// NewText builds a Text reporter writing to os.Stdout/os.Stderr.
func NewText(log *logrus.Entry) *Text {
	return &Text{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Log:       log,
		timestamp: color.New(color.FgGreen),
	}
}

func (t *Text) ReportStatus(s status.Status, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Log != nil {
		t.Log.WithField("at", at.Format(time.RFC3339Nano)).Info(s.String())
	}
	return nil
}

func (t *Text) ReportStdout(line string, at time.Time) error {
	return t.writeLine(t.Stdout, line, at)
}

func (t *Text) ReportStderr(line string, at time.Time) error {
	return t.writeLine(t.Stderr, line, at)
}

func (t *Text) writeLine(w io.Writer, line string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts := t.timestamp.Sprint(at.Format(time.RFC3339Nano))
	_, err := fmt.Fprintf(w, "%s %s\n", ts, line)
	return err
}
