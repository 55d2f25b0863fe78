package sshx

import (
	"context"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/panda-cat/netdev-dep/pkg/dialect"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Shell drives a vendor CLI over an interactive ssh session. All
// operations send input and then read until the device prompt (or a
// dialect specific pattern) shows up, bounded by the read timeout.
type Shell struct {
	in io.Writer
	d  *dialect.Dialect

	readTimeout time.Duration
	sessionLog  io.Writer

	readCh     chan readChunk
	done       chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once

	prompt string
	waitRe *regexp.Regexp
}

type readChunk struct {
	data []byte
	err  error
}

// NewShell requests a pty on the session, starts a remote shell and
// discovers the device prompt.
func NewShell(ctx context.Context, sess *ssh.Session, d *dialect.Dialect, readTimeout time.Duration, sessionLog io.Writer) (*Shell, error) {
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	// wide pty to keep devices from wrapping long config lines
	if err := sess.RequestPty("vt100", 24, 511, modes); err != nil {
		return nil, errors.Wrap(err, "failed to request pty")
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := sess.Shell(); err != nil {
		return nil, errors.Wrap(err, "failed to start shell")
	}

	s := newShell(stdin, stdout, d, readTimeout, sessionLog)
	if err := s.findPrompt(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newShell(in io.Writer, out io.Reader, d *dialect.Dialect, readTimeout time.Duration, sessionLog io.Writer) *Shell {
	s := &Shell{
		in:          in,
		d:           d,
		readTimeout: readTimeout,
		sessionLog:  sessionLog,
		readCh:      make(chan readChunk),
		done:        make(chan struct{}),
		readerDone:  make(chan struct{}),
		waitRe:      d.PromptPattern,
	}
	go s.readLoop(out)
	return s
}

// Close releases the reader goroutine. Pending output is dropped. The
// underlying session must be closed separately so that the stream read
// unblocks.
func (s *Shell) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Shell) readLoop(out io.Reader) {
	defer close(s.readerDone)

	buf := make([]byte, 4096)
	for {
		n, err := out.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			select {
			case s.readCh <- readChunk{data: b}:
			case <-s.done:
				return
			}
		}
		if err != nil {
			select {
			case s.readCh <- readChunk{err: err}:
			case <-s.done:
				return
			}
			close(s.readCh)
			return
		}
	}
}

// readUntil accumulates output until one of the given patterns matches.
// It returns the output and the index of the matched pattern.
func (s *Shell) readUntil(ctx context.Context, patterns ...*regexp.Regexp) (string, int, error) {
	var buf strings.Builder

	timer := time.NewTimer(s.readTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return buf.String(), -1, ctx.Err()
		case <-timer.C:
			return buf.String(), -1, errors.Errorf("timed out after %v waiting for prompt, last output: %q", s.readTimeout, tail(buf.String(), 80))
		case chunk, ok := <-s.readCh:
			if !ok || chunk.err != nil {
				if chunk.err == io.EOF || !ok {
					return buf.String(), -1, errors.New("connection closed while waiting for output")
				}
				return buf.String(), -1, chunk.err
			}
			buf.Write(chunk.data)
			if s.sessionLog != nil {
				_, _ = s.sessionLog.Write(chunk.data)
			}
			text := buf.String()
			for i, re := range patterns {
				if re.MatchString(text) {
					return text, i, nil
				}
			}
		}
	}
}

func (s *Shell) writeLine(line string) error {
	logrus.Tracef("shell write: %q", line)
	_, err := io.WriteString(s.in, line+"\n")
	return err
}

// findPrompt sends a newline and records the prompt line the device
// answers with. The discovered prompt narrows the wait pattern for all
// following commands.
func (s *Shell) findPrompt(ctx context.Context) error {
	if err := s.writeLine(""); err != nil {
		return err
	}
	out, _, err := s.readUntil(ctx, s.d.PromptPattern)
	if err != nil {
		return errors.Wrap(err, "failed to find prompt")
	}
	s.prompt = lastNonEmptyLine(out)
	s.waitRe = buildWaitRe(s.d, s.prompt)
	return nil
}

func (s *Shell) Prompt() string {
	return s.prompt
}

func (s *Shell) Hostname() string {
	return s.d.ParseHostname(s.prompt)
}

// Enable enters privileged mode using the given secret. A nil error
// with an empty secret means nothing was done.
func (s *Shell) Enable(ctx context.Context, secret string) error {
	if secret == "" || s.d.EnableCommand == "" {
		return nil
	}
	if err := s.writeLine(s.d.EnableCommand); err != nil {
		return err
	}

	patterns := []*regexp.Regexp{s.waitRe}
	if s.d.EnablePasswordPrompt != nil {
		patterns = append([]*regexp.Regexp{s.d.EnablePasswordPrompt}, patterns...)
	}
	_, idx, err := s.readUntil(ctx, patterns...)
	if err != nil {
		return errors.Wrap(err, "enable failed")
	}
	if s.d.EnablePasswordPrompt != nil && idx == 0 {
		if _, err := io.WriteString(s.in, secret+"\n"); err != nil {
			return err
		}
		// a second password prompt means the device rejected the secret
		_, idx, err = s.readUntil(ctx, s.d.EnablePasswordPrompt, s.d.PromptPattern)
		if err != nil {
			return errors.Wrap(err, "enable failed")
		}
		if idx == 0 {
			return errors.New("enable failed, device rejected the secret")
		}
	}

	// the prompt changes in privileged mode
	if err := s.findPrompt(ctx); err != nil {
		return err
	}
	if s.d.PrivilegedPrompt != nil && !s.d.PrivilegedPrompt.MatchString(s.prompt) {
		return errors.Errorf("enable did not reach privileged mode, prompt is still %q", s.prompt)
	}
	return nil
}

// DisablePager turns off output paging.
func (s *Shell) DisablePager(ctx context.Context) error {
	for _, cmd := range s.d.DisablePager {
		if _, err := s.Run(ctx, cmd); err != nil {
			return errors.Wrapf(err, "failed to disable paging with %q", cmd)
		}
	}
	return nil
}

// Run executes one command and returns its raw output, echo included.
func (s *Shell) Run(ctx context.Context, cmd string) (string, error) {
	if err := s.writeLine(cmd); err != nil {
		return "", err
	}
	out, _, err := s.readUntil(ctx, s.waitRe)
	if err != nil {
		return out, errors.Wrapf(err, "command %q", cmd)
	}
	return out, nil
}

// RunAll executes every command in order and concatenates the output.
func (s *Shell) RunAll(ctx context.Context, cmds []string) (string, error) {
	var buf strings.Builder
	for _, cmd := range cmds {
		out, err := s.Run(ctx, cmd)
		buf.WriteString(out)
		if err != nil {
			return buf.String(), err
		}
	}
	return buf.String(), nil
}

// ConfigSet wraps the commands in the dialect's configuration
// enter/exit sequence.
func (s *Shell) ConfigSet(ctx context.Context, cmds []string) (string, error) {
	if s.d.ConfigEnter == "" {
		return "", errors.Errorf("device_type %s does not support configuration mode", s.d.Name)
	}

	var buf strings.Builder
	out, err := s.Run(ctx, s.d.ConfigEnter)
	buf.WriteString(out)
	if err != nil {
		return buf.String(), err
	}
	for _, cmd := range cmds {
		out, err = s.Run(ctx, cmd)
		buf.WriteString(out)
		if err != nil {
			return buf.String(), err
		}
	}
	out, err = s.Run(ctx, s.d.ConfigExit)
	buf.WriteString(out)
	if err != nil {
		return buf.String(), err
	}
	return buf.String(), nil
}

// buildWaitRe builds a wait pattern from a discovered prompt that
// still matches after the prompt mutates (privileged mode marker,
// config sub-mode suffixes).
func buildWaitRe(d *dialect.Dialect, prompt string) *regexp.Regexp {
	base := strings.TrimSpace(prompt)
	base = strings.TrimLeft(base, "<[")
	base = strings.TrimRight(base, ">#$%] \t")
	if base == "" {
		return d.PromptPattern
	}
	re, err := regexp.Compile(`(?m)^[<\[]?` + regexp.QuoteMeta(base) + `[\w./:~-]*(\([^)]*\))?[>#\]$%]\s*$`)
	if err != nil {
		return d.PromptPattern
	}
	return re
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimRight(lines[i], "\r \t")
		if l != "" {
			return l
		}
	}
	return ""
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
