package display

import (
	"io"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// Screen draws full-screen frames through tcell and edits the input line
// itself, so typing never scrolls a frame away. It redraws on resize, e.g.
// when a phone is rotated.
type Screen struct {
	mu    sync.Mutex
	scr   tcell.Screen
	frame []string // lines since Clear
	shown []string // last flushed frame plus reports
	input []rune

	lines chan readResult
	done  chan struct{}
	once  sync.Once
}

type readResult struct {
	text string
	err  error
}

// NewScreen takes over the controlling terminal.
func NewScreen() (*Screen, error) {
	scr, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return newScreen(scr)
}

// newScreen initialises scr. On failure nothing is left for the caller to
// restore.
func newScreen(scr tcell.Screen) (*Screen, error) {
	if err := scr.Init(); err != nil {
		return nil, err
	}
	s := &Screen{
		scr:   scr,
		lines: make(chan readResult),
		done:  make(chan struct{}),
	}
	go s.events()
	return s, nil
}

func (s *Screen) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = s.frame[:0]
	return nil
}

func (s *Screen) Println(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = append(s.frame, strings.Split(text, "\n")...)
}

func (s *Screen) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown[:0], s.frame...)
	s.draw()
	return nil
}

func (s *Screen) Row() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frame)
}

// Report adds msg below the current frame until the next Flush.
func (s *Screen) Report(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, strings.Split(msg, "\n")...)
	s.draw()
}

// ReadLine returns the next line typed at the prompt. Ctrl-C, Ctrl-D and
// Close end input with io.EOF.
func (s *Screen) ReadLine() (string, error) {
	select {
	case r := <-s.lines:
		return r.text, r.err
	case <-s.done:
		return "", io.EOF
	}
}

// Close restores the terminal.
func (s *Screen) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.scr.Fini()
	})
	return nil
}

// draw paints shown above the prompt row. When the frame is taller than
// the screen its top is dropped, so the nearest buses stay visible.
// Callers hold mu.
func (s *Screen) draw() {
	w, h := s.scr.Size()
	s.scr.Clear()

	rows := s.shown
	if room := h - 1; len(rows) > room {
		if room < 0 {
			room = 0
		}
		rows = rows[len(rows)-room:]
	}
	for y, line := range rows {
		s.put(y, line, w)
	}
	prompt := len(rows)
	x := s.put(prompt, string(s.input), w)
	s.scr.ShowCursor(x, prompt)
	s.scr.Show()
}

// put writes text on row y, clipped to width w, and returns the column
// after it.
func (s *Screen) put(y int, text string, w int) int {
	x := 0
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if x+rw > w {
			break
		}
		s.scr.SetContent(x, y, r, nil, tcell.StyleDefault)
		x += rw
	}
	return x
}

func (s *Screen) events() {
	for {
		ev := s.scr.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			s.mu.Lock()
			s.scr.Sync()
			s.draw()
			s.mu.Unlock()
		case *tcell.EventKey:
			if r, ok := s.key(ev); ok {
				select {
				case s.lines <- r:
				case <-s.done:
					return
				}
			}
		}
	}
}

// key edits the input line. It returns a result when a line is complete.
func (s *Screen) key(ev *tcell.EventKey) (readResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Key() {
	case tcell.KeyEnter:
		text := string(s.input)
		s.input = s.input[:0]
		s.draw()
		return readResult{text: text}, true
	case tcell.KeyCtrlC, tcell.KeyCtrlD:
		return readResult{err: io.EOF}, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(s.input); n > 0 {
			s.input = s.input[:n-1]
			s.draw()
		}
	case tcell.KeyRune:
		s.input = append(s.input, ev.Rune())
		s.draw()
	}
	return readResult{}, false
}
