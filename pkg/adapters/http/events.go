package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/hfsm/internal/logging"
	"github.com/aretw0/hfsm/pkg/domain"
)

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // MachineID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(machineID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[machineID]; !ok {
		sm.subscribers[machineID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[machineID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[machineID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, machineID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(machineID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sm.logger.Debug("StreamManager: Broadcasting", "machine_id", machineID, "payload_size", len(msg))

	for ch := range sm.subscribers[machineID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "machine_id", machineID)
		}
	}
}

// SubscribeEvents handles the GET /events request (SSE).
// Without machine_id it streams graph source changes; with it, the diffs of
// that machine. watch=<graph ids> keeps only diffs touching those keys.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	machineID := r.URL.Query().Get("machine_id")
	if machineID == "" && s.watcher == nil {
		http.Error(w, "graph source is not watchable; pass machine_id", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if machineID == "" {
		s.logger.Info("SSE: Subscribing to graph changes")
		events, err := s.watcher.Watch(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", event)
				flusher.Flush()
			}
		}
	}

	s.logger.Info("SSE: Subscribing to machine updates", "machine_id", machineID)
	ch, cancel := s.Streams.Subscribe(machineID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watchList []domain.NodeID
	if v := r.URL.Query().Get("watch"); v != "" {
		for _, id := range strings.Split(v, ",") {
			watchList = append(watchList, domain.NodeID(strings.TrimSpace(id)))
		}
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "machine_id", machineID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !touches(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// touches reports whether the encoded diff changes any watched graph node.
// Undecodable payloads are passed through.
func touches(msg string, watch []domain.NodeID) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, id := range watch {
		if _, ok := diff.Changed[id]; ok {
			return true
		}
		if _, ok := diff.Added[id]; ok {
			return true
		}
	}
	return false
}
