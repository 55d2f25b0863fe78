package status

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/panda-cat/netdev-dep/pkg/utils"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

// MultiLineStatusHandler renders one live line per running status plus
// a counter, like tqdm does. Finished lines are popped to normal
// terminal output.
type MultiLineStatusHandler struct {
	ctx      context.Context
	out      io.Writer
	progress *mpb.Progress
	trace    bool
}

type statusLine struct {
	slh     *MultiLineStatusHandler
	bar     *mpb.Bar
	filler  mpb.BarFiller
	total   int
	message string

	finished bool
	result   EndResult
}

func NewMultiLineStatusHandler(ctx context.Context, out io.Writer, trace bool) *MultiLineStatusHandler {
	sh := &MultiLineStatusHandler{
		ctx:   ctx,
		out:   out,
		trace: trace,
	}

	sh.progress = mpb.NewWithContext(
		ctx,
		mpb.WithWidth(utils.GetTermWidth()),
		mpb.WithOutput(out),
		mpb.PopCompletedMode(),
	)

	return sh
}

func (s *MultiLineStatusHandler) IsTraceEnabled() bool {
	return s.trace
}

func (s *MultiLineStatusHandler) StartStatus(level Level, total int, message string) StatusLine {
	if total <= 0 {
		total = 1
	}
	sl := &statusLine{
		slh:     s,
		total:   total,
		message: message,
	}
	sl.filler = mpb.SpinnerStyle().PositionLeft().Build()
	sl.bar = s.progress.Add(int64(total), sl,
		mpb.BarWidth(1),
		mpb.AppendDecorators(decor.Any(sl.DecorMessage, decor.WCSyncWidthR)),
	)

	return sl
}

func (s *MultiLineStatusHandler) Message(level Level, message string) {
	if level == LevelTrace && !s.trace {
		return
	}

	// a status line that ends immediately gets popped into the
	// permanent terminal output
	sl := s.StartStatus(level, 1, message)
	switch level {
	case LevelWarning:
		sl.End(EndWarning)
	case LevelError:
		sl.End(EndError)
	default:
		sl.End(EndSuccess)
	}
}

func (s *MultiLineStatusHandler) MessageFallback(level Level, message string) {
	// the live status line is already visible, nothing to do
}

func (s *MultiLineStatusHandler) Flush() {
}

func (s *MultiLineStatusHandler) Stop() {
	s.progress.Wait()
}

func (sl *statusLine) DecorMessage(stat decor.Statistics) string {
	if sl.total > 1 {
		return fmt.Sprintf("%s (%d/%d)", sl.message, stat.Current, stat.Total)
	}
	return sl.message
}

// Fill implements mpb.BarFiller. While running it renders the spinner,
// afterwards the end result marker.
func (sl *statusLine) Fill(w io.Writer, reqWidth int, stat decor.Statistics) {
	if !sl.finished {
		sl.filler.Fill(w, reqWidth, stat)
		return
	}
	switch sl.result {
	case EndSuccess:
		fmt.Fprint(w, "✓")
	case EndWarning:
		fmt.Fprint(w, "⚠")
	default:
		fmt.Fprint(w, "✗")
	}
}

func (sl *statusLine) SetTotal(total int) {
	sl.total = total
	sl.bar.SetTotal(int64(total), false)
}

func (sl *statusLine) Increment() {
	sl.bar.Increment()
}

func (sl *statusLine) Update(message string) {
	sl.message = message
}

func (sl *statusLine) End(result EndResult) {
	sl.finished = true
	sl.result = result
	// render on top so that the pop happens in order
	sl.bar.SetPriority(math.MinInt)
	sl.bar.SetTotal(-1, true)
}
