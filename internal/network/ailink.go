package network

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MRamiBalles/worldstatus/internal/engine"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
	"github.com/MRamiBalles/worldstatus/internal/platform/metrics"
	"github.com/MRamiBalles/worldstatus/internal/protocol"
)

const (
	aiQueueSize   = 1024
	aiRetryPeriod = 3 * time.Second
)

// AILink connects the engine to the AI process. Status notifications flow
// out; attach/detach requests flow in. The link either dials the AI endpoint
// (Run) or accepts the AI's own connection (ServeAI).
type AILink struct {
	endpoint  string
	requester Requester
	dialer    *websocket.Dialer
	out       chan []byte
	logger    *logger.Logger
	metrics   *metrics.Collector

	mu     sync.Mutex
	active bool
}

var _ engine.AINotifier = (*AILink)(nil)

// NewAILink creates the AI link. An empty endpoint disables dialing.
func NewAILink(endpoint string, requester Requester, log *logger.Logger, m *metrics.Collector) *AILink {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.Get()
	}
	return &AILink{
		endpoint:  endpoint,
		requester: requester,
		dialer:    websocket.DefaultDialer,
		out:       make(chan []byte, aiQueueSize),
		logger:    log.Named("ailink"),
		metrics:   m,
	}
}

// NotifyStatus queues a status notification for the AI process. It never
// blocks the engine: when the queue is full the notification is dropped.
func (l *AILink) NotifyStatus(msg protocol.MsgAiRoleStatusFlag) {
	payload, err := protocol.Encode(msg)
	if err != nil {
		l.logger.Error("failed to encode ai notification", zap.Error(err))
		return
	}
	select {
	case l.out <- payload:
	default:
		l.metrics.RecordWSError()
		l.logger.Warn("ai queue full, notification dropped",
			zap.Uint32("role", msg.Identity), zap.Int("status", int(msg.Flag)))
	}
}

// SetRequester binds the engine that inbound requests are applied to. It
// must be called before Run or ServeAI.
func (l *AILink) SetRequester(r Requester) {
	l.requester = r
}

// Connected reports whether an AI connection is being served.
func (l *AILink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Run dials the AI endpoint and keeps the link up until ctx is done.
func (l *AILink) Run(ctx context.Context) error {
	if l.endpoint == "" {
		l.logger.Info("ai endpoint not configured, waiting for inbound connections")
		<-ctx.Done()
		return nil
	}
	for {
		conn, _, err := l.dialer.DialContext(ctx, l.endpoint, nil)
		if err != nil {
			l.logger.Warn("ai dial failed", zap.String("endpoint", l.endpoint), zap.Error(err))
		} else if l.acquire() {
			l.logger.Info("ai link established", zap.String("endpoint", l.endpoint))
			l.serve(ctx, conn)
			l.release()
		} else {
			_ = conn.Close()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(aiRetryPeriod):
		}
	}
}

// ServeAI accepts the AI process connecting to us on GET /ai.
func (l *AILink) ServeAI(w http.ResponseWriter, r *http.Request) {
	if !l.acquire() {
		http.Error(w, "ai link already connected", http.StatusConflict)
		return
	}
	defer l.release()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.metrics.RecordWSError()
		l.logger.Warn("ai upgrade failed", zap.Error(err))
		return
	}
	l.logger.Info("ai process connected", zap.String("remote", r.RemoteAddr))
	l.serve(r.Context(), conn)
}

func (l *AILink) acquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return false
	}
	l.active = true
	return true
}

func (l *AILink) release() {
	l.mu.Lock()
	l.active = false
	l.mu.Unlock()
}

// serve pumps both directions until the connection fails or ctx is done.
func (l *AILink) serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		l.readLoop(ctx, conn)
	}()

	l.writeLoop(ctx, conn)
	_ = conn.Close()
	<-readDone
}

func (l *AILink) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !errors.Is(ctx.Err(), context.Canceled) &&
				websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Warn("ai link read failed", zap.Error(err))
			}
			return
		}
		l.metrics.RecordWSMessage(true)
		l.handle(ctx, raw)
	}
}

func (l *AILink) writeLoop(ctx context.Context, conn *websocket.Conn) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case payload := <-l.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				l.metrics.RecordWSError()
				l.logger.Warn("ai link write failed", zap.Error(err))
				return
			}
			l.metrics.RecordWSMessage(false)
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (l *AILink) handle(ctx context.Context, raw []byte) {
	req, err := protocol.DecodeRequest(raw)
	if err != nil {
		l.metrics.RecordWSError()
		l.logger.Warn("invalid ai request", zap.Error(err))
		return
	}
	if err := ApplyRequest(ctx, l.requester, req); err != nil {
		l.logger.Warn("ai request rejected",
			zap.String("action", req.Action), zap.Uint32("role", req.RoleID),
			zap.Int("status", req.Status), zap.Error(err))
		return
	}
	l.logger.Debug("ai request applied",
		zap.String("action", req.Action), zap.Uint32("role", req.RoleID), zap.Int("status", req.Status))
}
