// Package console is the interactive front-end: it reads one key at a time,
// echoes it and prints help and command outcomes.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/sweeney/vent-remote/internal/logic"
)

const (
	keyInterrupt = 0x03 // ^C in raw mode
	keyEOF       = 0x04 // ^D in raw mode
)

// Console reads command keys from in and writes feedback to out.
type Console struct {
	in  io.Reader
	out io.Writer
	eol string

	ok   *color.Color
	fail *color.Color
	dim  *color.Color

	quit atomic.Bool
}

// New creates a console on the given streams.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:   in,
		out:  out,
		eol:  "\n",
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
}

// MakeRaw puts the terminal behind f into raw mode so keys arrive without
// Enter. It returns a function restoring the previous mode. Nothing happens
// when f is not a terminal.
func (c *Console) MakeRaw(f *os.File) (func(), error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, errors.Wrap(err, "make terminal raw")
	}
	c.eol = "\r\n"
	return func() { term.Restore(fd, state) }, nil
}

// Writer returns out wrapped so that line endings match the terminal mode.
// Use it for anything else printing to the same terminal, such as the logger.
func (c *Console) Writer(w io.Writer) io.Writer {
	if c.eol == "\n" {
		return w
	}
	return crlfWriter{w}
}

// Keys starts reading in and delivers every non-space key. The channel is
// closed on EOF, read error, ^C or ^D.
func (c *Console) Keys() <-chan rune {
	keys := make(chan rune)
	go func() {
		defer close(keys)
		r := bufio.NewReader(c.in)
		for {
			key, _, err := r.ReadRune()
			if err != nil {
				return
			}
			switch {
			case key == keyInterrupt || key == keyEOF:
				c.quit.Store(true)
				return
			case unicode.IsSpace(key) || key == unicode.ReplacementChar:
				continue
			}
			keys <- key
		}
	}()
	return keys
}

// Quit reports whether the key channel was closed by ^C or ^D.
func (c *Console) Quit() bool {
	return c.quit.Load()
}

// Banner prints the startup banner.
func (c *Console) Banner(version string) {
	c.printf("Ventilation remote button pusher %s%s", version, c.eol)
	c.printf("  Press %c for help.%s", logic.HelpKey, c.eol)
}

// Prompt prints the input prompt.
func (c *Console) Prompt() {
	c.printf("> ")
}

// Echo prints the key that was typed.
func (c *Console) Echo(key rune) {
	c.printf("%c%s", key, c.eol)
}

// Help prints every command and the help key.
func (c *Console) Help() {
	for _, cmd := range logic.Commands {
		c.printf("%c: %s%s", cmd.Key, cmd.Help, c.eol)
	}
	c.printf("%c: Print this help message%s", logic.HelpKey, c.eol)
}

// Announce prints the command about to be executed.
func (c *Console) Announce(cmd logic.Command) {
	c.printf("%c: %s%s", cmd.Key, cmd.Help, c.eol)
}

// Waiting tells the user the command is in flight.
func (c *Console) Waiting(cmd logic.Command) {
	c.dim.Fprintf(c.out, "   waiting for confirmation (%d press%s)%s", cmd.Presses, plural(cmd.Presses), c.eol)
}

// Result prints the outcome of a command.
func (c *Console) Result(o logic.Outcome) {
	if o == logic.OutcomeOK {
		c.ok.Fprintf(c.out, "%s%s", o.Message(), c.eol)
		return
	}
	c.fail.Fprintf(c.out, "error: %s%s", o.Message(), c.eol)
}

// Println prints a line of plain text.
func (c *Console) Println(s string) {
	c.printf("%s%s", s, c.eol)
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func plural(n uint) string {
	if n == 1 {
		return ""
	}
	return "es"
}

// crlfWriter turns bare line feeds into CRLF for a raw-mode terminal.
type crlfWriter struct {
	w io.Writer
}

func (cw crlfWriter) Write(p []byte) (int, error) {
	s := strings.ReplaceAll(string(p), "\r\n", "\n")
	if _, err := io.WriteString(cw.w, strings.ReplaceAll(s, "\n", "\r\n")); err != nil {
		return 0, err
	}
	return len(p), nil
}
