package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/nats-io/nats.go"
)

type NATSParams struct {
	ServerURI      string
	Subject        string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
}

// NATSBackend relays over a core NATS subject.
type NATSBackend struct {
	nc      *nats.Conn
	subject string
}

func NewNATS(param NATSParams) (*NATSBackend, error) {
	logTags := log.Fields{
		"module":    "relay",
		"component": "nats",
		"instance":  param.ServerURI,
	}
	if param.ConnectTimeout <= 0 {
		param.ConnectTimeout = 5 * time.Second
	}
	if param.ReconnectWait <= 0 {
		param.ReconnectWait = 2 * time.Second
	}

	nc, err := nats.Connect(
		param.ServerURI,
		nats.Timeout(param.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(param.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).WithFields(logTags).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.WithFields(logTags).Info("NATS reconnected")
		}),
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("NATS client connect failed")
		return nil, err
	}
	return &NATSBackend{nc: nc, subject: param.Subject}, nil
}

func (b *NATSBackend) Name() string { return "nats" }

func (b *NATSBackend) Send(_ context.Context, data []byte) error {
	return b.nc.Publish(b.subject, data)
}

func (b *NATSBackend) Receive(ctx context.Context, handle func([]byte)) error {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", b.subject, err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (b *NATSBackend) Close() error {
	if err := b.nc.FlushTimeout(time.Second); err != nil && !b.nc.IsClosed() {
		log.WithError(err).Debug("NATS flush failed")
	}
	b.nc.Close()
	return nil
}
