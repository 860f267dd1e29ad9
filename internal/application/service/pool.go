package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kairos/internal/application/port/output"
	"kairos/internal/domain/entity"
)

// MaxSlots is the number of agent sessions one evaluation may run at once.
const MaxSlots = 2

// SessionPool hands out at most one tool-provider connection per slot.
type SessionPool struct {
	factory output.ToolProviderFactory
	slots   [MaxSlots]chan struct{}

	mu     sync.Mutex
	live   map[int]*Lease
	closed bool
}

func NewSessionPool(factory output.ToolProviderFactory) *SessionPool {
	p := &SessionPool{
		factory: factory,
		live:    make(map[int]*Lease),
	}
	for i := range p.slots {
		p.slots[i] = make(chan struct{}, 1)
	}
	return p
}

// Acquire blocks until slot is free, then opens a provider connection on it.
func (p *SessionPool) Acquire(ctx context.Context, slot int) (*Lease, error) {
	if slot < 0 || slot >= MaxSlots {
		return nil, fmt.Errorf("%w: %d (pool has %d slots)", entity.ErrInvalidSlot, slot, MaxSlots)
	}
	if p.isClosed() {
		return nil, entity.ErrPoolClosed
	}

	select {
	case p.slots[slot] <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	provider, err := p.factory(ctx, slot)
	if err != nil {
		<-p.slots[slot]
		return nil, fmt.Errorf("open tool provider on slot %d: %w", slot, err)
	}

	lease := &Lease{pool: p, slot: slot, provider: provider}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = lease.Release(ctx)
		return nil, entity.ErrPoolClosed
	}
	p.live[slot] = lease
	p.mu.Unlock()

	return lease, nil
}

// Close releases every outstanding lease and rejects further acquisitions.
func (p *SessionPool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	leases := make([]*Lease, 0, len(p.live))
	for _, l := range p.live {
		leases = append(leases, l)
	}
	p.mu.Unlock()

	var errs []error
	for _, l := range leases {
		if err := l.Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Live reports how many slots currently hold a connection.
func (p *SessionPool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

func (p *SessionPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *SessionPool) forget(l *Lease) {
	p.mu.Lock()
	if p.live[l.slot] == l {
		delete(p.live, l.slot)
	}
	p.mu.Unlock()
}

// Lease is ownership of one slot and its provider connection.
type Lease struct {
	pool     *SessionPool
	slot     int
	provider output.ToolProvider

	once sync.Once
	err  error
}

func (l *Lease) Slot() int                     { return l.slot }
func (l *Lease) Provider() output.ToolProvider { return l.provider }

// Release shuts the provider down and frees the slot. Later calls return
// the first call's error without doing anything.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		if err := l.provider.Shutdown(ctx); err != nil {
			l.err = fmt.Errorf("shutdown tool provider on slot %d: %w", l.slot, err)
		}
		l.pool.forget(l)
		<-l.pool.slots[l.slot]
	})
	return l.err
}
