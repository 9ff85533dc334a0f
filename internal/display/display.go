// Package display provides the text surfaces the dashboard draws on.
package display

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Surface modes.
const (
	ModePlain  = "plain"
	ModeScreen = "screen"
)

// Surface is a line-oriented output target.
type Surface interface {
	// Clear empties the viewport and resets the row cursor.
	Clear() error
	// Println appends text, which may span several lines.
	Println(text string)
	// Flush makes everything appended since Clear visible.
	Flush() error
	// Row is the next row Println will write to.
	Row() int
	// Report shows a one-off message, e.g. an input error.
	Report(msg string)
	// ReadLine blocks for one line of user input.
	ReadLine() (string, error)
	Close() error
}

// LineReader reads newline-terminated input with the terminator removed.
type LineReader struct {
	r *bufio.Reader
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r)}
}

// ReadLine returns the next line. A final unterminated line is returned
// before io.EOF.
func (l *LineReader) ReadLine() (string, error) {
	text, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && text != "" {
			return strings.TrimRight(text, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

// Plain prints sequentially and clears with an ANSI sequence, like running
// clear(1) between frames.
type Plain struct {
	mu    sync.Mutex
	w     *bufio.Writer
	in    *LineReader
	row   int
	clear bool
}

// NewPlain writes to w and reads from in. When clear is false, frames are
// appended without clearing, which keeps output readable in logs and pipes.
func NewPlain(w io.Writer, in io.Reader, clear bool) *Plain {
	return &Plain{w: bufio.NewWriter(w), in: NewLineReader(in), clear: clear}
}

func (p *Plain) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.row = 0
	if !p.clear {
		return nil
	}
	_, err := p.w.WriteString("\x1b[H\x1b[2J")
	return err
}

func (p *Plain) Println(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, text)
	p.row += strings.Count(text, "\n") + 1
}

func (p *Plain) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Flush()
}

func (p *Plain) Row() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.row
}

func (p *Plain) Report(msg string) {
	p.Println(msg)
	_ = p.Flush()
}

func (p *Plain) ReadLine() (string, error) { return p.in.ReadLine() }

func (p *Plain) Close() error { return p.Flush() }
