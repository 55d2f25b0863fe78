package status

type simpleStatusHandler struct {
	cb    func(level Level, message string)
	trace bool
}

type simpleStatusLine struct {
	sh      *simpleStatusHandler
	level   Level
	message string
}

// NewSimpleStatusHandler reports every status change as a plain line.
// Meant for non-tty output where in-place updates are not possible.
func NewSimpleStatusHandler(cb func(level Level, message string), trace bool) StatusHandler {
	return &simpleStatusHandler{
		cb:    cb,
		trace: trace,
	}
}

func (s *simpleStatusHandler) IsTraceEnabled() bool {
	return s.trace
}

func (s *simpleStatusHandler) Stop() {
}

func (s *simpleStatusHandler) Flush() {
}

func (s *simpleStatusHandler) StartStatus(level Level, total int, message string) StatusLine {
	sl := &simpleStatusLine{
		sh:      s,
		level:   level,
		message: message,
	}
	if message != "" {
		s.Message(level, message)
	}
	return sl
}

func (s *simpleStatusHandler) Message(level Level, message string) {
	if level == LevelTrace && !s.trace {
		return
	}
	s.cb(level, message)
}

func (s *simpleStatusHandler) MessageFallback(level Level, message string) {
	s.Message(level, message)
}

func (sl *simpleStatusLine) SetTotal(total int) {
}

func (sl *simpleStatusLine) Increment() {
}

func (sl *simpleStatusLine) Update(message string) {
	if message == sl.message {
		return
	}
	sl.message = message
	sl.sh.Message(sl.level, message)
}

func (sl *simpleStatusLine) End(result EndResult) {
	switch result {
	case EndWarning:
		sl.sh.Message(LevelWarning, sl.message)
	case EndError:
		sl.sh.Message(LevelError, sl.message)
	}
}
