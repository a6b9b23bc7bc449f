package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/plomlompom/plomrogue-sub000/internal/observerproto"
)

// Server fans world-state exports out to read-only websocket observers. It
// never accepts commands.
type Server struct {
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	// Idle observers are pinged every pingInterval and dropped when no pong
	// or other frame arrives within readTimeout.
	pingInterval time.Duration
	readTimeout  time.Duration

	mu   sync.Mutex
	subs map[string]chan []byte
	last []byte
	turn int
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log:          logger,
		subs:         map[string]chan []byte{},
		pingInterval: 30 * time.Second,
		readTimeout:  60 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only, see isLoopbackRemote
		},
	}
}

// Publish implements server.Exporter.
func (s *Server) Publish(turn int, text string) error {
	b, err := json.Marshal(observerproto.WorldStateMsg{
		Type:            observerproto.TypeWorldState,
		ProtocolVersion: observerproto.Version,
		Turn:            turn,
		Text:            text,
	})
	if err != nil {
		return fmt.Errorf("encode worldstate: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last, s.turn = b, turn
	s.broadcastLocked(b)
	return nil
}

// Withdraw implements server.Exporter.
func (s *Server) Withdraw() error {
	b, err := json.Marshal(observerproto.WithdrawnMsg{
		Type:            observerproto.TypeWithdrawn,
		ProtocolVersion: observerproto.Version,
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	s.broadcastLocked(b)
	return nil
}

func (s *Server) broadcastLocked(b []byte) {
	for sid, out := range s.subs {
		select {
		case out <- b:
		default:
			// Slow observer; it catches up with the next export.
			s.log.Printf("observer %s: queue full, dropped turn %d", sid, s.turn)
		}
	}
}

// Status reports the last published turn and the connected observers.
func (s *Server) Status() observerproto.BootstrapResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return observerproto.BootstrapResponse{
		ProtocolVersion: observerproto.Version,
		Active:          s.last != nil,
		Turn:            s.turn,
		Observers:       len(s.subs),
	}
}

func (s *Server) join(sid string, out chan []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sid] = out
	if s.last != nil {
		out <- s.last
	}
}

func (s *Server) leave(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sid)
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(s.Status())
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 8)
		s.join(sid, out)
		defer s.leave(sid)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		})

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			ping := time.NewTicker(s.pingInterval)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
						writeErr <- err
						cancel()
						return
					}
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: observers have nothing to say, it only notices the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Mux serves the feed under /v1/observe.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observe", s.WSHandler())
	mux.HandleFunc("/v1/observe/bootstrap", s.BootstrapHandler())
	return mux
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
