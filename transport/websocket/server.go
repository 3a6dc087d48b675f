package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pressplayinc/connectfour-backend/internal/entity"
	"github.com/pressplayinc/connectfour-backend/internal/registry"
	"github.com/pressplayinc/connectfour-backend/internal/session"
	"github.com/pressplayinc/connectfour-backend/transport/push"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

type gamePlay interface {
	Clients() *registry.Clients

	CreateSession(clientID int) (session.Snapshot, error)
	RequestJoin(sessionID, clientID int) error
	PendingRequests(sessionID, actorID int) ([]entity.JoinRequest, error)
	Decide(sessionID, actorID, requesterID int, accept bool) error
	Move(ctx context.Context, sessionID, clientID, column int) (session.MoveResult, error)
	Leave(ctx context.Context, clientID int) (session.LeaveResult, error)
	Rematch(sessionID, clientID int) (session.RematchResult, error)

	ListSessions() []session.Overview
	SessionSnapshot(sessionID int) (session.Snapshot, error)
	ClientSnapshot(clientID int) (entity.Client, error)
}

// Server speaks JSON frames over WebSocket. It shares the client registry
// with the tcp transport, so a websocket player and a tcp player can end up
// in the same game.
type Server struct {
	logger   *slog.Logger
	game     gamePlay
	upgrader websocket.Upgrader

	handlers map[string]func(ctx context.Context, clientID int, p *wsPeer, payload json.RawMessage) error
}

func New(logger *slog.Logger, game gamePlay) *Server {
	server := &Server{
		logger: logger,
		game:   game,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},

		handlers: make(map[string]func(context.Context, int, *wsPeer, json.RawMessage) error),
	}

	server.handlers["connect"] = server.handleConnect
	server.handlers["session:create"] = server.handleCreate
	server.handlers["session:join"] = server.handleJoin
	server.handlers["session:requests"] = server.handleRequests
	server.handlers["session:accept"] = server.handleAccept
	server.handlers["session:reject"] = server.handleReject
	server.handlers["session:move"] = server.handleMove
	server.handlers["session:leave"] = server.handleLeave
	server.handlers["session:rematch"] = server.handleRematch
	server.handlers["session:list"] = server.handleList
	server.handlers["session:status"] = server.handleStatus

	return server
}

// Start - serves /ws until the context is canceled, then shuts down.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// wsPeer is the write half of one websocket connection. The mutex serializes
// pushes from other clients' goroutines with replies and pings from the
// owner's own goroutines.
type wsPeer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (that *wsPeer) writeMessage(action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	if err = that.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *wsPeer) ping() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	return that.conn.WriteMessage(websocket.PingMessage, nil)
}

// Push - implements the shared peer contract; websocket clients get events
// as frames with a human-readable message payload.
func (that *wsPeer) Push(event, text string) error {
	return that.writeMessage(event, Response{Message: text})
}

func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("component", "websocket", "conn", uuid.NewString())

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	defer conn.Close()

	p := &wsPeer{conn: conn}

	clientID, err := that.game.Clients().Register(p, req.RemoteAddr)
	if err != nil {
		log.Warn("connection refused", "error", err)
		_ = p.writeMessage("error", Response{Error: "server is full"})
		return
	}

	log = log.With("client", clientID)
	log.Info("client connected", "addr", req.RemoteAddr)

	that.handleMessages(ctx, log, clientID, p)
	that.disconnect(ctx, log, clientID)
}

// handleMessages - reads frames until the connection drops. A stale
// connection is detected by the ping ticker and the read deadline.
func (that *Server) handleMessages(ctx context.Context, log *slog.Logger, clientID int, p *wsPeer) {
	_ = p.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if err := p.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		var message Message
		if err := p.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Error("error reading message", "error", err)
			}

			return
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			_ = p.writeMessage("error", Response{Error: fmt.Sprintf("unknown action: %s", message.Action)})
			continue
		}

		if err := handler(ctx, clientID, p, message.Payload); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// disconnect - the implicit leave on connection teardown, then slot
// reclamation and a courtesy broadcast.
func (that *Server) disconnect(ctx context.Context, log *slog.Logger, clientID int) {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil {
		return
	}

	if client.InSession() {
		result, err := that.game.Leave(ctx, clientID)
		if err == nil && result.Forfeit {
			that.notifyClient(result.ForfeitWinnerID, "session:over",
				fmt.Sprintf("%s left the game, you win by forfeit", client.Username))
		}
	}

	that.game.Clients().Unregister(clientID)

	if client.Username != "" {
		that.notifyExcept(clientID, "notice", fmt.Sprintf("%s disconnected", client.Username))
	}

	log.Info("client disconnected", "username", client.Username)
}

// notifyExcept - pushes an event to every connected client but one, whatever
// transport they came in on. Sends happen outside all locks.
func (that *Server) notifyExcept(excludeID int, event, text string) {
	that.game.Clients().ForEachExcept(excludeID, func(client entity.Client) {
		that.pushTo(&client, event, text)
	})
}

func (that *Server) notifyClient(clientID int, event, text string) {
	client, ok := that.game.Clients().LookupByID(clientID)
	if !ok {
		return
	}

	that.pushTo(&client, event, text)
}

func (that *Server) pushTo(client *entity.Client, event, text string) {
	target, ok := client.Conn.(push.Peer)
	if !ok {
		return
	}

	if err := target.Push(event, text); err != nil {
		that.logger.Debug("failed to push event", "client", client.ID, "event", event, "error", err)
	}
}
