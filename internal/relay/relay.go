// Package relay fans hub dispatches out to every instance that shares the
// same pub/sub subject, so a user connected to another process still gets
// the event.
package relay

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"billboard-realtime/internal/hub"

	"github.com/apex/log"
)

const DefaultOutbox = 1024

// Backend moves encoded envelopes between instances.
type Backend interface {
	Name() string
	Send(ctx context.Context, data []byte) error
	// Receive blocks until ctx is done, calling handle for every payload.
	Receive(ctx context.Context, handle func([]byte)) error
	Close() error
}

// Relay implements hub.Relay. Publish never blocks the caller; envelopes
// that do not fit in the outbox are dropped.
type Relay struct {
	backend Backend
	outbox  chan hub.Envelope
	dropped atomic.Uint64
	logTags log.Fields
}

func New(backend Backend, outbox int) *Relay {
	if outbox <= 0 {
		outbox = DefaultOutbox
	}
	return &Relay{
		backend: backend,
		outbox:  make(chan hub.Envelope, outbox),
		logTags: log.Fields{
			"module":    "relay",
			"component": backend.Name(),
		},
	}
}

func (r *Relay) Publish(env hub.Envelope) {
	select {
	case r.outbox <- env:
	default:
		r.dropped.Add(1)
		log.WithFields(r.logTags).Warnf("Relay outbox full, dropped %s for %s %s", env.Name, env.Target, env.Key)
	}
}

// Dropped reports how many envelopes Publish discarded.
func (r *Relay) Dropped() uint64 {
	return r.dropped.Load()
}

// Run drains the outbox to the backend and feeds received envelopes to
// deliver until ctx is cancelled. The backend is closed on return.
func (r *Relay) Run(ctx context.Context, deliver func(hub.Envelope)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if err := r.backend.Close(); err != nil {
			log.WithError(err).WithFields(r.logTags).Error("Relay backend close failed")
		}
	}()

	recvErr := make(chan error, 1)
	go func() {
		recvErr <- r.backend.Receive(ctx, func(data []byte) {
			var env hub.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				log.WithError(err).WithFields(r.logTags).Warn("Discarding malformed relay payload")
				return
			}
			deliver(env)
		})
	}()

	log.WithFields(r.logTags).Info("Relay started")
	for {
		select {
		case <-ctx.Done():
			<-recvErr
			log.WithFields(r.logTags).Info("Relay stopped")
			return nil
		case err := <-recvErr:
			if err != nil {
				log.WithError(err).WithFields(r.logTags).Error("Relay receive failed")
			}
			return err
		case env := <-r.outbox:
			data, err := json.Marshal(env)
			if err != nil {
				log.WithError(err).WithFields(r.logTags).Errorf("Unable to encode %s", env.Name)
				continue
			}
			if err := r.backend.Send(ctx, data); err != nil {
				log.WithError(err).WithFields(r.logTags).Warnf("Relay send of %s failed", env.Name)
			}
		}
	}
}
