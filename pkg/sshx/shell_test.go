package sshx

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/panda-cat/netdev-dep/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice simulates a cisco-like CLI on the other end of the shell
// streams.
func fakeDevice(t *testing.T, handler func(line string, out io.Writer) bool) (io.Writer, io.Reader) {
	t.Helper()

	clientInR, clientInW := io.Pipe()
	clientOutR, clientOutW := io.Pipe()

	go func() {
		defer clientOutW.Close()
		scanner := bufio.NewScanner(clientInR)
		for scanner.Scan() {
			if !handler(scanner.Text(), clientOutW) {
				return
			}
		}
	}()

	return clientInW, clientOutR
}

func ciscoHandler(enabled *bool, awaitingSecret *bool) func(line string, out io.Writer) bool {
	prompt := func() string {
		if *enabled {
			return "sw1#"
		}
		return "sw1>"
	}
	return func(line string, out io.Writer) bool {
		if *awaitingSecret {
			*awaitingSecret = false
			if line == "s3cr3t" {
				*enabled = true
				io.WriteString(out, "\r\n"+prompt())
			} else {
				io.WriteString(out, "\r\n% Bad secrets\r\n"+prompt())
			}
			return true
		}
		switch line {
		case "":
			io.WriteString(out, "\r\n"+prompt())
		case "enable":
			*awaitingSecret = true
			io.WriteString(out, "enable\r\nPassword: ")
		case "terminal length 0":
			io.WriteString(out, "terminal length 0\r\n"+prompt())
		case "show version":
			io.WriteString(out, "show version\r\nCisco IOS Software, C2960 Software\r\nUptime is 1 week\r\n"+prompt())
		case "configure terminal":
			io.WriteString(out, "configure terminal\r\nsw1(config)#")
		case "ntp server 10.0.0.1":
			io.WriteString(out, "ntp server 10.0.0.1\r\nsw1(config)#")
		case "end":
			io.WriteString(out, "end\r\n"+prompt())
		default:
			io.WriteString(out, line+"\r\n% Invalid input detected\r\n"+prompt())
		}
		return true
	}
}

func newTestShell(t *testing.T) *Shell {
	t.Helper()

	enabled := false
	awaitingSecret := false
	in, out := fakeDevice(t, ciscoHandler(&enabled, &awaitingSecret))

	d, err := dialect.Get("cisco_ios")
	require.NoError(t, err)

	s := newShell(in, out, d, 2*time.Second, nil)
	require.NoError(t, s.findPrompt(context.Background()))
	return s
}

func TestShellFindPrompt(t *testing.T) {
	s := newTestShell(t)
	assert.Equal(t, "sw1>", s.Prompt())
	assert.Equal(t, "sw1", s.Hostname())
}

func TestShellRun(t *testing.T) {
	s := newTestShell(t)

	out, err := s.Run(context.Background(), "show version")
	require.NoError(t, err)
	assert.Contains(t, out, "Cisco IOS Software")
	assert.Contains(t, out, "Uptime is 1 week")
}

func TestShellEnable(t *testing.T) {
	s := newTestShell(t)

	require.NoError(t, s.Enable(context.Background(), "s3cr3t"))
	assert.Equal(t, "sw1#", s.Prompt())
	assert.Equal(t, "sw1", s.Hostname())

	// paging off and a command in privileged mode still work
	require.NoError(t, s.DisablePager(context.Background()))
	out, err := s.Run(context.Background(), "show version")
	require.NoError(t, err)
	assert.Contains(t, out, "Cisco IOS Software")
}

func TestShellEnableBadSecret(t *testing.T) {
	s := newTestShell(t)

	err := s.Enable(context.Background(), "wrong-secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "privileged")
	assert.Equal(t, "sw1>", s.Prompt())
}

func TestShellEnableSecretRejectedWithReprompt(t *testing.T) {
	// some devices answer a bad secret with another password prompt
	// instead of an error line
	awaitingSecret := false
	in, out := fakeDevice(t, func(line string, w io.Writer) bool {
		if awaitingSecret {
			io.WriteString(w, "\r\nPassword: ")
			return true
		}
		switch line {
		case "":
			io.WriteString(w, "\r\nsw1>")
		case "enable":
			awaitingSecret = true
			io.WriteString(w, "enable\r\nPassword: ")
		}
		return true
	})

	d, err := dialect.Get("cisco_ios")
	require.NoError(t, err)

	s := newShell(in, out, d, 2*time.Second, nil)
	require.NoError(t, s.findPrompt(context.Background()))

	err = s.Enable(context.Background(), "wrong-secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected the secret")
}

func TestShellEnableNoSecret(t *testing.T) {
	s := newTestShell(t)

	require.NoError(t, s.Enable(context.Background(), ""))
	assert.Equal(t, "sw1>", s.Prompt())
}

func TestShellConfigSet(t *testing.T) {
	s := newTestShell(t)
	require.NoError(t, s.Enable(context.Background(), "s3cr3t"))

	out, err := s.ConfigSet(context.Background(), []string{"ntp server 10.0.0.1"})
	require.NoError(t, err)
	assert.Contains(t, out, "configure terminal")
	assert.Contains(t, out, "ntp server 10.0.0.1")
	assert.Contains(t, out, "end")
}

func TestShellRunAll(t *testing.T) {
	s := newTestShell(t)

	out, err := s.RunAll(context.Background(), []string{"show version", "show version"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Cisco IOS Software"))
}

func TestShellReadTimeout(t *testing.T) {
	in, out := fakeDevice(t, func(line string, w io.Writer) bool {
		// never answer
		return true
	})

	d, err := dialect.Get("cisco_ios")
	require.NoError(t, err)

	s := newShell(in, out, d, 50*time.Millisecond, nil)
	err = s.findPrompt(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestShellContextCancel(t *testing.T) {
	in, out := fakeDevice(t, func(line string, w io.Writer) bool {
		return true
	})

	d, err := dialect.Get("cisco_ios")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newShell(in, out, d, time.Minute, nil)
	err = s.findPrompt(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestShellCloseReleasesReader(t *testing.T) {
	clientInR, clientInW := io.Pipe()
	clientOutR, clientOutW := io.Pipe()
	go io.Copy(io.Discard, clientInR)
	go io.WriteString(clientOutW, "noise without a prompt\r\n")

	d, err := dialect.Get("cisco_ios")
	require.NoError(t, err)

	s := newShell(clientInW, clientOutR, d, 50*time.Millisecond, nil)
	err = s.findPrompt(context.Background())
	require.Error(t, err)

	// the reader must not stay blocked on undelivered output after the
	// shell is done
	s.Close()
	clientOutW.Close()

	select {
	case <-s.readerDone:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine did not stop")
	}
}

func TestShellSessionLog(t *testing.T) {
	enabled := false
	awaitingSecret := false
	in, out := fakeDevice(t, ciscoHandler(&enabled, &awaitingSecret))

	d, err := dialect.Get("cisco_ios")
	require.NoError(t, err)

	var log strings.Builder
	s := newShell(in, out, d, 2*time.Second, &log)
	require.NoError(t, s.findPrompt(context.Background()))

	_, err = s.Run(context.Background(), "show version")
	require.NoError(t, err)
	assert.Contains(t, log.String(), "Cisco IOS Software")
}
