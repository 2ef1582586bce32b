// Package relay maintains the long-lived subscription to the refresh
// notification relay.
//
// The offline pipeline publishes a "refresh" signal whenever it pushes new
// summary documents. This listener holds a websocket open to the relay,
// invokes a callback on every recognized signal, and reconnects with bounded
// exponential backoff when the transport drops. Connection state is observable
// through IsConnected and mirrored onto the event bus.
package relay

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/slippax/lotus-ge/internal/events"
)

const (
	dialTimeout = 30 * time.Second

	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10
)

// RefreshFunc is invoked for every recognized refresh signal
type RefreshFunc func()

// Listener subscribes to the refresh relay over websocket
type Listener struct {
	url        string
	httpClient *http.Client // Reusable HTTP client configured for HTTP/1.1
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	onRefresh RefreshFunc
	eventBus  *events.Bus
	log       zerolog.Logger

	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool
}

// createHTTP1Client creates an HTTP client that forces HTTP/1.1.
// Relay hosts behind Cloudflare negotiate HTTP/2 via TLS ALPN, but the
// websocket upgrade handshake requires HTTP/1.1.
func createHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

// NewListener creates a new relay listener
func NewListener(url string, onRefresh RefreshFunc, eventBus *events.Bus, log zerolog.Logger) *Listener {
	return &Listener{
		url:        url,
		httpClient: createHTTP1Client(),
		onRefresh:  onRefresh,
		eventBus:   eventBus,
		log:        log.With().Str("component", "relay_listener").Logger(),
		stopChan:   make(chan struct{}),
	}
}

// Start initializes the websocket connection and starts the read loop
func (l *Listener) Start() error {
	l.log.Info().Str("url", l.url).Msg("Starting relay listener")

	if err := l.connect(); err != nil {
		l.log.Warn().Err(err).Msg("Initial relay connection failed, will retry in background")
		go l.reconnectLoop()
		return err
	}

	l.mu.RLock()
	ctx := l.connCtx
	l.mu.RUnlock()
	go l.readMessages(ctx)

	return nil
}

// Stop gracefully shuts down the listener
func (l *Listener) Stop() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.mu.Unlock()

	l.log.Info().Msg("Stopping relay listener")
	close(l.stopChan)

	return l.disconnect()
}

// IsConnected returns current connection status
func (l *Listener) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// connect establishes the websocket connection
func (l *Listener) connect() error {
	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, l.url, &websocket.DialOptions{
		HTTPClient: l.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to dial relay: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())

	l.mu.Lock()
	l.conn = conn
	l.connCtx = connCtx
	l.cancelFunc = connCancel
	l.connected = true
	l.mu.Unlock()

	l.log.Info().Msg("Connected to refresh relay")
	// Emitted outside the lock so bus handlers may query IsConnected
	l.emitStatus(true)

	return nil
}

// disconnect closes the websocket connection
func (l *Listener) disconnect() error {
	l.mu.Lock()

	if l.conn == nil {
		l.mu.Unlock()
		return nil
	}

	if l.cancelFunc != nil {
		l.cancelFunc()
		l.cancelFunc = nil
	}

	err := l.conn.Close(websocket.StatusNormalClosure, "")
	l.conn = nil
	l.connCtx = nil
	l.connected = false
	l.mu.Unlock()

	l.emitStatus(false)

	if err != nil {
		return fmt.Errorf("error closing relay connection: %w", err)
	}
	return nil
}

// markDisconnected flips state after an unexpected read failure
func (l *Listener) markDisconnected() {
	l.mu.Lock()
	wasConnected := l.connected
	l.connected = false
	l.conn = nil
	if l.cancelFunc != nil {
		l.cancelFunc()
		l.cancelFunc = nil
	}
	l.mu.Unlock()

	if wasConnected {
		l.emitStatus(false)
	}
}

// readMessages continuously reads messages from the relay
func (l *Listener) readMessages(ctx context.Context) {
	defer func() {
		l.log.Info().Msg("Relay read loop stopped")
		l.markDisconnected()

		l.mu.RLock()
		stopped := l.stopped
		l.mu.RUnlock()
		if !stopped {
			go l.reconnectLoop()
		}
	}()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		l.mu.RLock()
		conn := l.conn
		l.mu.RUnlock()

		if conn == nil {
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				l.log.Info().Int("status", int(closeStatus)).Msg("Relay connection closed normally")
			} else if ctx.Err() != nil {
				l.log.Debug().Msg("Relay read cancelled by context")
			} else {
				l.log.Error().Err(err).Msg("Unexpected relay read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			continue
		}

		if isRefreshSignal(message) {
			l.log.Info().Msg("Refresh signal received")
			if l.onRefresh != nil {
				l.onRefresh()
			}
		}
		// Anything else is silently ignored; the connection stays open
	}
}

// isRefreshSignal recognizes the two accepted payload forms: a JSON object
// {"message":"refresh"} or the literal text "refresh"
func isRefreshSignal(message []byte) bool {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(message, &payload); err == nil && payload.Message == "refresh" {
		return true
	}

	return strings.TrimSpace(string(message)) == "refresh"
}

// reconnectLoop handles automatic reconnection with exponential backoff
func (l *Listener) reconnectLoop() {
	l.mu.Lock()
	if l.reconnecting || l.stopped {
		l.mu.Unlock()
		return
	}
	l.reconnecting = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.reconnecting = false
		l.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-l.stopChan:
			return
		default:
		}

		l.mu.RLock()
		stopped := l.stopped
		l.mu.RUnlock()
		if stopped {
			return
		}

		attempt++
		delay := calculateBackoff(attempt)

		if attempt <= maxReconnectAttempts {
			l.log.Info().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Attempting to reconnect to relay")
		} else {
			l.log.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Reconnection attempt (exceeded max attempts, will keep retrying)")
		}

		select {
		case <-time.After(delay):
		case <-l.stopChan:
			return
		}

		if err := l.connect(); err != nil {
			l.log.Error().Err(err).Int("attempt", attempt).Msg("Relay reconnection failed")
			continue
		}

		l.log.Info().Int("attempt", attempt).Msg("Reconnected to relay")

		l.mu.RLock()
		ctx := l.connCtx
		l.mu.RUnlock()
		go l.readMessages(ctx)
		return
	}
}

// calculateBackoff calculates exponential backoff delay, capped at maxReconnectDelay
func calculateBackoff(attempt int) time.Duration {
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}
	return time.Duration(delay)
}

// emitStatus mirrors connection state onto the event bus
func (l *Listener) emitStatus(connected bool) {
	if l.eventBus == nil {
		return
	}
	l.eventBus.Emit(events.PushStatusChanged, "relay_listener", map[string]interface{}{
		"connected": connected,
	})
}
