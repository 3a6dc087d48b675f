package tcpserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pressplayinc/connectfour-backend/internal/entity"
	"github.com/pressplayinc/connectfour-backend/internal/registry"
	"github.com/pressplayinc/connectfour-backend/internal/session"
	"github.com/pressplayinc/connectfour-backend/transport/push"
)

const writeTimeout = 10 * time.Second

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

// Server speaks the line protocol: one goroutine per connection, a username
// prompt, then plain-text commands. All core calls return before anything is
// written to any socket.
type Server struct {
	logger *slog.Logger
	game   gamePlay

	handlers map[string]func(ctx context.Context, clientID int, p *peer, arg string)
}

func New(logger *slog.Logger, game gamePlay) *Server {
	server := &Server{
		logger: logger,
		game:   game,

		handlers: make(map[string]func(context.Context, int, *peer, string)),
	}

	server.handlers["help"] = server.handleHelp
	server.handlers["list"] = server.handleList
	server.handlers["status"] = server.handleStatus
	server.handlers["create"] = server.handleCreate
	server.handlers["join"] = server.handleJoin
	server.handlers["requests"] = server.handleRequests
	server.handlers["accept"] = server.handleAccept
	server.handlers["reject"] = server.handleReject
	server.handlers["move"] = server.handleMove
	server.handlers["grid"] = server.handleGrid
	server.handlers["leave"] = server.handleLeave
	server.handlers["rematch"] = server.handleRematch

	return server
}

// Start - listens until the context is canceled; then the listener closes,
// no new connections are accepted and in-flight commands run to completion.
func (that *Server) Start(ctx context.Context, port string) error {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if errors.Is(err, net.ErrClosed) {
				return nil
			}

			return fmt.Errorf("failed to accept connection: %w", err)
		}

		go that.handleConnection(ctx, conn)
	}
}

// peer is the write half of one tcp connection. The mutex serializes pushes
// from other clients' goroutines with replies from the owner's own loop.
type peer struct {
	conn net.Conn
	mu   sync.Mutex
}

func (that *peer) send(text string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	if _, err := that.conn.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write to peer: %w", err)
	}

	return nil
}

// Push - implements the shared peer contract; tcp clients get events as text.
func (that *peer) Push(_, text string) error {
	return that.send(text)
}

func (that *Server) handleConnection(ctx context.Context, conn net.Conn) {
	log := that.logger.With("component", "tcp", "conn", uuid.NewString())

	p := &peer{conn: conn}
	defer conn.Close()

	clientID, err := that.game.Clients().Register(p, conn.RemoteAddr().String())
	if err != nil {
		log.Warn("connection refused", "error", err)
		_ = p.send("[ERROR] Server is full. Try again later.\n")
		return
	}

	log = log.With("client", clientID)
	log.Info("client connected", "addr", conn.RemoteAddr().String())

	_ = p.send("Welcome to the Connect 4 server!\nUsername: ")

	scanner := bufio.NewScanner(conn)

	if !scanner.Scan() {
		log.Info("client disconnected during login")
		that.game.Clients().Unregister(clientID)
		return
	}

	username := strings.TrimSpace(scanner.Text())
	that.game.Clients().SetUsername(clientID, username)
	username = that.game.Clients().Username(clientID)

	log.Info("client registered", "username", username)

	_ = p.send(fmt.Sprintf("\n[OK] Welcome %s! Type 'help' to see available commands.\n\n", username))
	that.notifyExcept(clientID, "notice", fmt.Sprintf("\n[NOTICE] %s connected to the server.\n\n", username))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		command, arg := splitCommand(line)
		if command == "quit" || command == "exit" {
			_ = p.send("\n[OK] Goodbye!\n\n")
			break
		}

		handler, ok := that.handlers[command]
		if !ok {
			_ = p.send(fmt.Sprintf("\n[ERROR] Unknown command: %s. Type 'help' for help.\n\n", command))
			continue
		}

		handler(ctx, clientID, p, arg)
	}

	that.disconnect(ctx, log, clientID)
}

// disconnect - the implicit leave every client performs on its own goroutine
// before it terminates, then slot reclamation and a courtesy broadcast.
func (that *Server) disconnect(ctx context.Context, log *slog.Logger, clientID int) {
	client, err := that.game.ClientSnapshot(clientID)
	if err != nil {
		return
	}

	if client.InSession() {
		result, err := that.game.Leave(ctx, clientID)
		if err == nil && result.Forfeit {
			that.notifyForfeit(clientID, client.Username, result)
		}
	}

	that.game.Clients().Unregister(clientID)

	if client.Username != "" {
		that.notifyExcept(clientID, "notice", fmt.Sprintf("\n[NOTICE] %s disconnected.\n\n", client.Username))
	}

	log.Info("client disconnected", "username", client.Username)
}

// notifyExcept - pushes an event to every connected client but one. The
// recipient list is a snapshot; sends happen outside all locks.
func (that *Server) notifyExcept(excludeID int, event, text string) {
	that.game.Clients().ForEachExcept(excludeID, func(client entity.Client) {
		that.pushTo(&client, event, text)
	})
}

// notifyClient - pushes an event to a single client, if still connected.
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

// splitCommand - lower-cases the command word and keeps the rest verbatim.
func splitCommand(line string) (string, string) {
	fields := strings.SplitN(line, " ", 2)

	command := strings.ToLower(fields[0])
	if len(fields) < 2 {
		return command, ""
	}

	return command, strings.TrimSpace(fields[1])
}
