package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"billboard-realtime/internal/auth"
	"billboard-realtime/internal/hub"

	"github.com/apex/log"
	"github.com/gorilla/websocket"
)

const (
	maxPayload   int64         = 1000000
	writeTimeout time.Duration = 10 * time.Second

	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	defaultSendBuffer   = 256
	oracleTimeout       = 5 * time.Second
)

// ReadReceipts persists a read receipt and returns the conversation the
// message belongs to.
type ReadReceipts interface {
	MarkMessageRead(ctx context.Context, messageID, userID string) (string, time.Time, error)
}

type Options struct {
	// TrustClientIdentity accepts authenticate{userId} without a token.
	TrustClientIdentity bool
	// AllowClientBroadcast lets joined connections emit newMessage to
	// their room.
	AllowClientBroadcast bool

	PingInterval time.Duration
	PingTimeout  time.Duration
	SendBuffer   int
}

type Deps struct {
	Hub         *hub.Hub
	Transports  *hub.TransportTable
	Receipts    ReadReceipts
	TokenConfig auth.TokenConfig
	Options     Options
}

type Server struct {
	hub         *hub.Hub
	transports  *hub.TransportTable
	receipts    ReadReceipts
	tokenConfig auth.TokenConfig
	opts        Options
	now         func() time.Time
	logTags     log.Fields

	upgrader websocket.Upgrader
}

func NewServer(deps Deps) *Server {
	opts := deps.Options
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = defaultPingTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Server{
		hub:         deps.Hub,
		transports:  deps.Transports,
		receipts:    deps.Receipts,
		tokenConfig: deps.TokenConfig,
		opts:        opts,
		now:         time.Now,
		logTags: log.Fields{
			"module":    "socketio",
			"component": "server",
			"instance":  deps.Hub.InstanceID(),
		},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "Transport unknown", http.StatusBadRequest)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ws.SetReadLimit(maxPayload)

	c := newConn(ws, s.opts.SendBuffer)
	s.transports.Attach(c.id, c)
	defer func() {
		if c.connected {
			s.hub.Unregister(c.id)
		}
		s.transports.Detach(c.id)
		c.close()
	}()

	open := map[string]any{
		"sid":          c.id,
		"upgrades":     []string{},
		"pingInterval": s.opts.PingInterval.Milliseconds(),
		"pingTimeout":  s.opts.PingTimeout.Milliseconds(),
		"maxPayload":   maxPayload,
	}
	openBytes, _ := json.Marshal(open)
	_ = c.enqueue(string(engineOpen) + string(openBytes))

	go c.writeLoop()
	go c.heartbeat(s.opts.PingInterval, s.opts.PingTimeout)
	c.readLoop(func(msg string) {
		s.handleMessage(c, msg)
	})
}

func (s *Server) handleMessage(c *conn, msg string) {
	if msg == "" {
		return
	}

	switch enginePacketType(msg[0]) {
	case enginePong:
		c.markPong()
	case enginePing:
		_ = c.enqueue(string(enginePong) + msg[1:])
	case engineMessage:
		s.handleSocketPayload(c, msg[1:])
	case engineClose:
		c.close()
	}
}

func (s *Server) handleSocketPayload(c *conn, payload string) {
	if payload == "" {
		return
	}

	switch socketPacketType(payload[0]) {
	case socketConnect:
		s.handleConnect(c, payload)
	case socketDisconnect:
		c.close()
	case socketEvent:
		if !c.connected {
			return
		}
		pkt, err := parseEventPacket(payload)
		if err != nil {
			log.WithError(err).WithFields(s.logTags).Debugf("Bad event packet on %s", c.id)
			return
		}
		if pkt.Namespace != defaultNamespace {
			log.WithFields(s.logTags).Debugf("Dropped %s on unconnected namespace %s from %s", pkt.Name, pkt.Namespace, c.id)
			return
		}
		s.handleEvent(c, pkt)
	}
}

func (s *Server) handleConnect(c *conn, payload string) {
	if c.connected {
		return
	}

	ns, rest := parseOptionalNamespace(payload[1:])
	if ns != defaultNamespace {
		s.rejectConnect(c, ns, "Invalid namespace")
		return
	}

	var userID string
	if rest != "" {
		token := gjsonString([]byte(rest), "token")
		if token != "" {
			claims, err := auth.VerifyToken(token, s.tokenConfig)
			if err != nil {
				s.rejectConnect(c, ns, "Invalid authentication token")
				return
			}
			userID = claims.UserID
		}
	}

	frame, err := buildConnectFrame(ns, c.id)
	if err != nil {
		return
	}
	c.connected = true
	s.hub.Register(c.id)
	_ = c.enqueue(frame)

	if userID != "" {
		s.hub.Authenticate(c.id, userID)
	}
}

func (s *Server) rejectConnect(c *conn, ns, message string) {
	if frame, err := buildConnectErrorFrame(ns, message); err == nil {
		_ = c.enqueue(frame)
	}
	_ = c.enqueue(string(engineClose))
}

func (s *Server) ack(c *conn, pkt eventPacket, args ...any) {
	if pkt.ID == nil {
		return
	}
	frame, err := buildAckFrame(pkt.Namespace, *pkt.ID, args...)
	if err != nil {
		return
	}
	_ = c.enqueue(frame)
}
