package sshx

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/panda-cat/netdev-dep/pkg/types"
	"golang.org/x/crypto/ssh"
	"golang.org/x/net/proxy"
)

const defaultMaxAge = time.Minute * 1
const defaultMaxErrorAge = time.Second * 10

// Pool shares ssh clients between sessions to the same device with the
// same credentials. Failed connections are cached for a short time so
// that a batch does not hammer an unreachable device.
type Pool struct {
	MaxAge      time.Duration
	MaxErrorAge time.Duration

	pool map[string]*poolEntry

	m sync.Mutex
}

type poolEntry struct {
	hash string
	addr string

	sessionCount int
	time         time.Time

	client *ssh.Client
	err    error

	m sync.Mutex
}

type PooledSession struct {
	Session *ssh.Session
	pe      *poolEntry
}

func (p *Pool) GetSession(ctx context.Context, dev *types.Device, cfg *ssh.ClientConfig) (*PooledSession, error) {
	pe, isNew, err := p.getLockedPoolEntry(ctx, dev, cfg)
	if err != nil {
		return nil, err
	}
	defer pe.m.Unlock()

	if pe.err != nil {
		return nil, pe.err
	}

	s, err := pe.client.NewSession()
	if err != nil {
		_ = pe.client.Close()
		if isNew {
			// don't retry with a fresh connection and cause the pool entry to expire earlier
			pe.err = err
			return nil, err
		}

		// retry with a fresh connection
		client, err := p.newClient(ctx, pe.addr, cfg)
		if err != nil {
			// make the pool entry expire earlier and return errors until then
			pe.err = err
			return nil, err
		}

		pe.client = client
		s, err = pe.client.NewSession()
		if err != nil {
			// something is completely wrong here
			pe.err = err
			return nil, err
		}
	}

	pe.sessionCount += 1

	return &PooledSession{
		pe:      pe,
		Session: s,
	}, nil
}

func (p *Pool) init() {
	p.pool = map[string]*poolEntry{}
	if p.MaxAge == 0 {
		p.MaxAge = defaultMaxAge
	}
	if p.MaxErrorAge == 0 {
		p.MaxErrorAge = defaultMaxErrorAge
	}
}

func (p *Pool) getLockedPoolEntry(ctx context.Context, dev *types.Device, cfg *ssh.ClientConfig) (*poolEntry, bool, error) {
	addr := dev.Addr()
	h := buildPoolHash(addr, dev)

	isNew := false

	p.m.Lock()
	if p.pool == nil {
		p.init()
	}
	pe := p.pool[h]
	if pe == nil {
		isNew = true
		pe = &poolEntry{
			hash: h,
			addr: addr,
			time: time.Now(),
		}
		p.pool[h] = pe
	}
	p.m.Unlock()

	// caller must unlock
	pe.m.Lock()

	if pe.err != nil {
		return pe, isNew, nil
	}

	if isNew {
		client, err := p.newClient(ctx, addr, cfg)
		if err != nil {
			pe.err = err
		} else {
			pe.client = client
		}
		p.startExpire(pe)
	}
	return pe, isNew, nil
}

func (p *Pool) startExpire(pe *poolEntry) {
	go func() {
		for {
			time.Sleep(1 * time.Second)

			pe.m.Lock()
			if pe.sessionCount != 0 {
				pe.m.Unlock()
				continue
			}
			elapsed := time.Since(pe.time)
			expired := false
			if pe.err != nil && elapsed > p.MaxErrorAge {
				expired = true
			} else if pe.err == nil && elapsed >= p.MaxAge {
				expired = true
			}
			pe.m.Unlock()

			if expired {
				break
			}
		}

		p.m.Lock()
		delete(p.pool, pe.hash)
		p.m.Unlock()

		pe.m.Lock()
		defer pe.m.Unlock()
		if pe.client != nil {
			_ = pe.client.Close()
		}
		pe.client = nil
	}()
}

func (ps *PooledSession) Close() error {
	err := ps.Session.Close()

	ps.pe.m.Lock()
	defer ps.pe.m.Unlock()

	ps.pe.sessionCount--

	return err
}

func (p *Pool) newClient(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := proxy.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

func buildPoolHash(addr string, dev *types.Device) string {
	h := sha256.New()
	_ = binary.Write(h, binary.LittleEndian, []byte(addr))
	_ = binary.Write(h, binary.LittleEndian, []byte(dev.Username))
	_ = binary.Write(h, binary.LittleEndian, []byte(dev.Password))
	_ = binary.Write(h, binary.LittleEndian, []byte(dev.Secret))
	return hex.EncodeToString(h.Sum(nil))
}
