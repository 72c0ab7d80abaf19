package actions

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Outputs records step outputs. Every key is echoed as "Set key=value"; it is
// then appended to the GITHUB_OUTPUT file when one is configured, or printed
// as a legacy ::set-output command otherwise.
type Outputs struct {
	w    io.Writer
	file string
}

// NewOutputs returns an Outputs echoing to w and appending to file, which may
// be empty.
func NewOutputs(w io.Writer, file string) *Outputs {
	return &Outputs{w: w, file: file}
}

// SetOutput reports a single key.
func (o *Outputs) SetOutput(key, value string) error {
	if _, err := fmt.Fprintf(o.w, "Set %s=%s\n", key, value); err != nil {
		return err
	}

	if o.file == "" {
		_, err := fmt.Fprintf(o.w, "::set-output name=%s::%s\n", key, EscapeData(value))
		return err
	}

	return appendOutputFile(o.file, key, value)
}

// FormatFileOutput renders a key in GITHUB_OUTPUT file syntax. Multi-line
// values use a heredoc with a random delimiter.
func FormatFileOutput(key, value string) string {
	if !strings.ContainsAny(value, "\r\n") {
		return fmt.Sprintf("%s=%s\n", key, value)
	}

	delimiter := "ghadelimiter_" + uuid.NewString()
	return fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter)
}

func appendOutputFile(path, key, value string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatFileOutput(key, value)); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}
