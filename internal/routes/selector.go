package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
)

// LineReader is a blocking source of user input lines.
type LineReader interface {
	ReadLine() (string, error)
}

// Reporter shows a short message to the user.
type Reporter interface {
	Report(msg string)
}

// Selector reads route lists from the user and applies them to a Filter.
type Selector struct {
	input  LineReader
	filter *Filter
	report Reporter
}

// NewSelector creates a selector. report may be nil.
func NewSelector(input LineReader, filter *Filter, report Reporter) *Selector {
	return &Selector{input: input, filter: filter, report: report}
}

type line struct {
	text string
	err  error
}

// Run reads lines until an exit keyword, a read error, or ctx is done. Exit
// keywords and read errors call stop. The blocking read happens on a
// separate goroutine so Run itself returns promptly on cancellation; that
// goroutine lingers until its read returns.
func (s *Selector) Run(ctx context.Context, stop context.CancelFunc) error {
	lines := make(chan line)
	go func() {
		for {
			text, err := s.input.ReadLine()
			select {
			case lines <- line{text: text, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		var in line
		select {
		case <-ctx.Done():
			log.Printf("[routes] stopped")
			return nil
		case in = <-lines:
		}

		if in.err != nil {
			stop()
			if errors.Is(in.err, io.EOF) {
				log.Printf("[routes] input closed")
				return nil
			}
			return fmt.Errorf("read routes: %w", in.err)
		}

		if quit := s.Apply(in.text); quit {
			log.Printf("[routes] exit requested")
			stop()
			return nil
		}
	}
}

// Apply handles one line of input. It returns true when the line asks the
// program to exit.
func (s *Selector) Apply(text string) bool {
	if IsExit(text) {
		return true
	}
	parsed, err := Parse(text)
	if err != nil {
		s.say(fmt.Sprintf("Invalid input: %q", text))
		return false
	}
	s.filter.Replace(parsed)
	log.Printf("[routes] now showing %v", parsed)
	return false
}

func (s *Selector) say(msg string) {
	if s.report != nil {
		s.report.Report(msg)
	}
}
