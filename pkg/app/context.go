package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool
	NoColor      bool

	// Log and error messages go to Stderr, formatted results to Stdout
	Stdout io.Writer
	Stderr io.Writer

	// DefaultTimeout bounds a command when no explicit timeout is given;
	// zero means no limit
	DefaultTimeout time.Duration

	// Progress reporting
	ProgressCallback func(message string, percent int)

	// Serialises writes to Stderr; shared by derived contexts
	outMu *sync.Mutex
}

// NewContext creates a new application context
func NewContext() *Context {
	return &Context{
		Context:        context.Background(),
		OutputFormat:   "table",
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		outMu:          &sync.Mutex{},
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// WithDefaultTimeout applies timeout, or DefaultTimeout when timeout is zero.
// With neither set the returned context is c itself.
func (c *Context) WithDefaultTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = c.DefaultTimeout
	}
	if timeout <= 0 {
		return c, func() {}
	}
	return c.WithTimeout(timeout)
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(string, int)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set. The callback runs with the
// output lock held, so it must write directly rather than through Log.
func (c *Context) Progress(message string, percent int) {
	if c.ProgressCallback != nil {
		unlock := c.lock()
		defer unlock()
		c.ProgressCallback(message, percent)
	}
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if !c.Quiet && c.Verbose {
		c.print(color.New(color.Faint), "", message)
	}
}

// Logf is Log with formatting
func (c *Context) Logf(format string, args ...interface{}) {
	c.Log(fmt.Sprintf(format, args...))
}

// Warn outputs a warning unless quiet
func (c *Context) Warn(message string) {
	if !c.Quiet {
		c.print(color.New(color.FgYellow), "Warning: ", message)
	}
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet {
		c.print(color.New(color.FgRed, color.Bold), "Error: ", message)
	}
}

func (c *Context) print(style *color.Color, prefix, message string) {
	w := c.Stderr
	if w == nil {
		w = os.Stderr
	}
	unlock := c.lock()
	defer unlock()
	if c.colorEnabled(w) {
		style.EnableColor()
	} else {
		style.DisableColor()
	}
	style.Fprintln(w, prefix+message)
}

func (c *Context) lock() func() {
	if c.outMu == nil {
		return func() {}
	}
	c.outMu.Lock()
	return c.outMu.Unlock
}

// colorEnabled reports whether w is a terminal that should receive colour.
func (c *Context) colorEnabled(w io.Writer) bool {
	if c.NoColor || color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
