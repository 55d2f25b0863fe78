package status

type NoopStatusHandler struct {
}

type NoopStatusLine struct {
}

func (s *NoopStatusHandler) IsTraceEnabled() bool {
	return false
}

func (s *NoopStatusHandler) Stop() {
}

func (s *NoopStatusHandler) Flush() {
}

func (s *NoopStatusHandler) StartStatus(level Level, total int, message string) StatusLine {
	return &NoopStatusLine{}
}

func (s *NoopStatusHandler) Message(level Level, message string) {
}

func (s *NoopStatusHandler) MessageFallback(level Level, message string) {
}

var _ StatusHandler = &NoopStatusHandler{}

func (n NoopStatusLine) SetTotal(total int) {
}

func (n NoopStatusLine) Increment() {
}

func (n NoopStatusLine) Update(message string) {
}

func (n NoopStatusLine) End(result EndResult) {
}
