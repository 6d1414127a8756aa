// Package elog is the logging and progress-reporting layer shared by all
// four hclust CLI tools: Logger/Progress/View interfaces over a logrus +
// fatih/color + vbauerster/mpb/v5 stack, generalized so it doesn't depend
// on any single tool's reader/writer helpers.
package elog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

// Logger is the narrow logging surface every component depends on; it lets
// callers stay oblivious to whether output is going to a TTY, a plain file,
// or a JSON stream.
type Logger interface {
	Debugf(format string, x ...interface{})
	Infof(format string, x ...interface{})
	Warnf(format string, x ...interface{})
	Errorf(format string, x ...interface{})
	Printf(format string, x ...interface{})
	IsDebugEnabled() bool
}

// Progress reports incremental progress on a long-running stage (norm
// pre-pass, a block's sub-rows, a tract read loop).
type Progress interface {
	Increment(n int64)
	Finish(success bool)
}

// ProgressReporter creates Progress trackers for named stages.
type ProgressReporter interface {
	NewProgress(label string, total int64) Progress
}

// View bundles Logger and ProgressReporter, the single object each CLI
// command threads through its pipeline.
type View interface {
	Logger
	ProgressReporter
}

// CLI is a terminal-oriented View: colored level-formatted log lines plus
// multi-bar progress rendering. When DisableTTY is set, progress bars are
// not rendered.
type CLI struct {
	DisableColors bool
	DisableTTY    bool
	IsDebug       bool
	IsVerbose     bool

	lock       sync.Mutex
	tracking   bool
	bars       map[*mpb.Bar]bool
	buffer     *bytes.Buffer
	container  *mpb.Progress
}

var _ View = (*CLI)(nil)

// Debugf logs at debug level, gated on IsDebug.
func (l *CLI) Debugf(format string, x ...interface{}) {
	if l.IsDebug {
		logrus.Debugf(format, x...)
	}
}

// Infof logs at info level, gated on IsVerbose: "verbose" surfaces
// info-level noise by default.
func (l *CLI) Infof(format string, x ...interface{}) {
	if l.IsVerbose || l.IsDebug {
		logrus.Infof(format, x...)
	}
}

// Warnf logs at warn level, always shown.
func (l *CLI) Warnf(format string, x ...interface{}) {
	logrus.Warnf(format, x...)
}

// Errorf logs at error level, always shown.
func (l *CLI) Errorf(format string, x ...interface{}) {
	logrus.Errorf(format, x...)
}

// Printf logs at the neutral "always printed" level.
func (l *CLI) Printf(format string, x ...interface{}) {
	logrus.Printf(format, x...)
}

// IsDebugEnabled reports whether debug-level output is enabled.
func (l *CLI) IsDebugEnabled() bool {
	return l.IsDebug
}

// NewProgress creates a progress tracker. When DisableTTY is set it
// returns a tracker that renders nothing and discards every update.
func (l *CLI) NewProgress(label string, total int64) Progress {
	if l.DisableTTY {
		return &nilProgress{}
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	if !l.tracking {
		l.tracking = true
		l.buffer = new(bytes.Buffer)
		logrus.SetOutput(l.buffer)
		l.container = mpb.New(mpb.WithWidth(80))
		l.bars = make(map[*mpb.Bar]bool)
	}

	bar := l.container.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DidentRight}),
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	l.bars[bar] = true

	return &pb{owner: l, bar: bar, total: total}
}

// Format implements logrus.Formatter, coloring each log level: faint for
// debug/trace, blue for info, yellow for warn, red for error/fatal/panic.
func (l *CLI) Format(entry *logrus.Entry) ([]byte, error) {
	msg := entry.Message
	if !l.DisableColors {
		faint := color.New(color.Faint).SprintFunc()
		blue := color.New(color.FgBlue).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		switch entry.Level {
		case logrus.DebugLevel, logrus.TraceLevel:
			msg = faint(msg)
		case logrus.InfoLevel:
			msg = blue(msg)
		case logrus.WarnLevel:
			msg = yellow(msg)
		case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
			msg = red(msg)
		}
	}
	return []byte(fmt.Sprintf("%s\n", msg)), nil
}

type nilProgress struct{}

func (*nilProgress) Increment(int64)  {}
func (*nilProgress) Finish(bool)      {}

type pb struct {
	owner *CLI
	bar   *mpb.Bar
	total int64
	cur   int64
}

func (p *pb) Increment(n int64) {
	p.cur += n
	p.bar.IncrInt64(n)
}

func (p *pb) Finish(success bool) {
	if p.cur != p.total || !success {
		p.bar.Abort(false)
	}

	p.owner.lock.Lock()
	defer p.owner.lock.Unlock()
	delete(p.owner.bars, p.bar)
	if len(p.owner.bars) == 0 {
		p.owner.bars = nil
		p.owner.tracking = false
		p.owner.container.Wait()
		p.owner.container = nil
		logrus.SetOutput(os.Stdout)
		_, _ = io.Copy(os.Stdout, p.owner.buffer)
		p.owner.buffer = nil
	}
}
