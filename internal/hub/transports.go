package hub

import "sync"

// TransportTable is a concurrency safe TransportResolver populated by the
// socket server as sessions open and close.
type TransportTable struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

func NewTransportTable() *TransportTable {
	return &TransportTable{transports: make(map[string]Transport)}
}

func (t *TransportTable) Attach(connID string, transport Transport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transports[connID] = transport
}

func (t *TransportTable) Detach(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.transports, connID)
}

func (t *TransportTable) Transport(connID string) (Transport, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	transport, ok := t.transports[connID]
	return transport, ok
}
