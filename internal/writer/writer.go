// Package writer emits indentation-aware structured text. A generator
// describes its output as a tree of Steps; Run threads a single Context
// through them in order, so no backend has to track indentation itself.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// DefaultIndent is the number of spaces per nesting level.
const DefaultIndent = 2

// Context carries the output sink and the current indent depth of one run.
// It is created by Run and must not escape it.
type Context struct {
	out    io.Writer
	unit   int
	depth  int
	extra  int  // spaces added by enclosing list items
	marker bool // next line opens a list item
	lines  int
	err    error
}

// Depth returns the current nesting level.
func (c *Context) Depth() int {
	return c.depth
}

// write appends one line at the current depth. The first sink error sticks
// and turns every later write into a no-op.
func (c *Context) write(line string) {
	if c.err != nil {
		return
	}
	var err error
	switch {
	case c.marker:
		c.marker = false
		_, err = io.WriteString(c.out, strings.Repeat(" ", c.depth*c.unit+c.extra-2)+"- "+line+"\n")
	case line == "":
		_, err = io.WriteString(c.out, "\n")
	default:
		_, err = io.WriteString(c.out, strings.Repeat(" ", c.depth*c.unit+c.extra)+line+"\n")
	}
	if err != nil {
		c.err = fmt.Errorf("write line %d: %w", c.lines+1, err)
		return
	}
	c.lines++
}

func (c *Context) indent() {
	c.depth++
}

func (c *Context) dedent() {
	if c.depth == 0 {
		panic("writer: indent depth would become negative")
	}
	c.depth--
}

// Step is one unit of output applied to a Context.
type Step func(c *Context)

// Nop writes nothing.
func Nop(*Context) {}

// Line writes s at the current depth.
func Line(s string) Step {
	return func(c *Context) {
		c.write(s)
	}
}

// Linef writes a formatted line at the current depth.
func Linef(format string, args ...any) Step {
	return Line(fmt.Sprintf(format, args...))
}

// Seq runs steps in order.
func Seq(steps ...Step) Step {
	return func(c *Context) {
		for _, s := range steps {
			if s != nil {
				s(c)
			}
		}
	}
}

// Indented runs steps one level deeper and restores the depth on every exit path.
func Indented(steps ...Step) Step {
	return func(c *Context) {
		c.indent()
		defer c.dedent()
		Seq(steps...)(c)
	}
}

// Block writes "header:" followed by body one level deeper.
func Block(header string, body ...Step) Step {
	return Seq(Line(header+":"), Indented(body...))
}

// When runs steps only if cond holds.
func When(cond bool, steps ...Step) Step {
	if !cond {
		return Nop
	}
	return Seq(steps...)
}

// Items writes "header:" and one "- item" line per entry. An empty list writes nothing.
func Items(header string, items []string, format func(string) string) Step {
	if len(items) == 0 {
		return Nop
	}
	if format == nil {
		format = Scalar
	}
	lines := make([]Step, len(items))
	for i, item := range items {
		lines[i] = Line("- " + format(item))
	}
	return Block(header, lines...)
}

// Item writes steps as one entry of a block sequence. The first line gets
// the "- " marker and every later line aligns with it, whatever the indent unit.
func Item(steps ...Step) Step {
	return func(c *Context) {
		c.extra += 2
		c.marker = true
		defer func() {
			c.extra -= 2
			c.marker = false
		}()
		Seq(steps...)(c)
	}
}

// Each maps items to steps and runs them in order.
func Each[T any](items []T, fn func(T) Step) Step {
	steps := make([]Step, len(items))
	for i, item := range items {
		steps[i] = fn(item)
	}
	return Seq(steps...)
}

// Option configures a run.
type Option func(*Context)

// WithIndent sets the number of spaces per nesting level.
func WithIndent(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.unit = n
		}
	}
}

// Result summarizes a completed run.
type Result struct {
	Lines int
	Depth int
}

// Run applies step to a fresh Context writing to out.
func Run(out io.Writer, step Step, opts ...Option) (Result, error) {
	c := &Context{out: out, unit: DefaultIndent}
	for _, opt := range opts {
		opt(c)
	}
	step(c)
	if c.depth != 0 {
		panic(fmt.Sprintf("writer: run finished at depth %d", c.depth))
	}
	return Result{Lines: c.lines, Depth: c.depth}, c.err
}

// Render runs step into memory and returns the text.
func Render(step Step, opts ...Option) (string, error) {
	var buf bytes.Buffer
	if _, err := Run(&buf, step, opts...); err != nil {
		return "", err
	}
	return buf.String(), nil
}
