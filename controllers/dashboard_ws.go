package controller

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/services/whatsapp"
	"immoflow/state"
	"immoflow/store"
)

const (
	defaultConfirmTimeout = 2 * time.Minute
	commandQueueSize      = 16
	queueFullMessage      = "Demasiadas operaciones pendientes, intenta de nuevo"
)

// DashboardGateway serves one state.Controller session per websocket
// connection. Commands are applied in arrival order; feedback, realtime
// messages and confirmation prompts are pushed as they happen.
type DashboardGateway struct {
	Store          store.Remote
	WhatsApp       whatsapp.Config
	WhatsAppOpts   []whatsapp.Option
	Logger         *logrus.Entry
	ConfirmTimeout time.Duration
}

func NewDashboardGateway(remote store.Remote, wa whatsapp.Config, logger *logrus.Entry) *DashboardGateway {
	return &DashboardGateway{
		Store:          remote,
		WhatsApp:       wa,
		Logger:         componentLogger(logger, "dashboard"),
		ConfirmTimeout: defaultConfirmTimeout,
	}
}

// Upgrade lets websocket handshakes through and rejects plain requests.
func (g *DashboardGateway) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (g *DashboardGateway) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)
		g.Serve(conn, userID)
	})
}

// frameConn is the part of a websocket connection the gateway needs.
type frameConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

type dashboardCommand struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Table     string    `json:"table,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	Payload   store.Row `json:"payload,omitempty"`
	LeadID    string    `json:"lead_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	OK        bool      `json:"ok,omitempty"`
}

type dashboardEvent struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Offline bool   `json:"offline,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type dashboardSession struct {
	conn    frameConn
	log     *logrus.Entry
	timeout time.Duration
	ctrl    *state.Controller

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan bool

	stopWatch store.Unsubscribe
}

// Serve runs the session until the client disconnects.
func (g *DashboardGateway) Serve(conn frameConn, userID string) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &dashboardSession{
		conn:    conn,
		log:     g.Logger.WithFields(logrus.Fields{"session": uuid.NewString(), "user_id": userID}),
		timeout: g.ConfirmTimeout,
		pending: make(map[string]chan bool),
	}
	if s.timeout <= 0 {
		s.timeout = defaultConfirmTimeout
	}

	s.ctrl = state.NewController(g.Store,
		state.WithConfirmer(s),
		state.WithLogger(s.log),
		state.WithMessenger(whatsapp.SessionMessenger{
			Base:     g.WhatsApp,
			Settings: func() *models.Settings { return s.ctrl.Settings() },
			Options:  g.WhatsAppOpts,
		}),
		state.WithMessageListener(func(m models.Message) {
			s.push(dashboardEvent{Type: "message", Data: m})
		}),
	)
	defer s.ctrl.Close()
	s.ctrl.Feedback().OnChange(func(kind state.Kind, message string) {
		s.push(dashboardEvent{Type: "feedback", Kind: string(kind), Message: message})
	})

	s.log.Info("Dashboard session opened")
	s.ctrl.Bootstrap(ctx)
	s.pushState()

	commands := make(chan dashboardCommand, commandQueueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for cmd := range commands {
			s.handle(ctx, cmd)
		}
	}()

	for {
		var cmd dashboardCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		if cmd.Type == "confirm_reply" {
			s.resolve(cmd.ID, cmd.OK)
			continue
		}
		// The reader never blocks so confirm replies keep flowing while the
		// worker waits on a prompt.
		select {
		case commands <- cmd:
		default:
			s.log.WithField("command", cmd.Type).Warn("Command queue full, rejecting")
			s.push(dashboardEvent{Type: "error", ID: cmd.ID, Message: queueFullMessage})
		}
	}

	close(commands)
	cancel()
	<-done
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.log.Info("Dashboard session closed")
}

func (s *dashboardSession) handle(ctx context.Context, cmd dashboardCommand) {
	log := s.log.WithFields(logrus.Fields{"command": cmd.Type, "request_id": cmd.ID})
	var data any

	switch cmd.Type {
	case "state":
	case "create", "update", "delete":
		m, ok := state.Lookup(cmd.Table)
		if !ok {
			s.push(dashboardEvent{Type: "error", ID: cmd.ID, Message: "Tabla desconocida: " + cmd.Table})
			return
		}
		switch cmd.Type {
		case "create":
			if rec, ok := m.CreateRow(ctx, s.ctrl, cmd.Payload); ok {
				data = rec
			}
		case "update":
			if rec, ok := m.UpdateRow(ctx, s.ctrl, cmd.TargetID, cmd.Payload); ok {
				data = rec
			}
		default:
			m.DeleteRow(ctx, s.ctrl, cmd.TargetID)
		}
	case "delete_lead":
		s.ctrl.DeleteLead(ctx, cmd.TargetID)
	case "load_conversation":
		if s.stopWatch != nil {
			s.stopWatch()
		}
		data = s.ctrl.LoadConversation(ctx, cmd.LeadID)
		s.stopWatch = s.ctrl.WatchConversation(ctx, cmd.LeadID)
	case "send_message":
		if msg := s.ctrl.SendMessage(ctx, cmd.LeadID, cmd.Content); msg != nil {
			data = msg
		}
	case "send_media":
		if msg := s.ctrl.SendMedia(ctx, cmd.LeadID, cmd.MediaType, cmd.MediaURL, cmd.FileName, cmd.Content); msg != nil {
			data = msg
		}
	default:
		log.Warn("Unknown dashboard command")
		s.push(dashboardEvent{Type: "error", ID: cmd.ID, Message: "Comando desconocido: " + cmd.Type})
		return
	}

	log.Debug("Dashboard command applied")
	s.push(dashboardEvent{Type: "result", ID: cmd.ID, Data: data})
	s.pushState()
}

// Confirm asks the browser and waits for its answer. No answer within the
// timeout counts as a refusal.
func (s *dashboardSession) Confirm(ctx context.Context, prompt string) bool {
	id := uuid.NewString()
	reply := make(chan bool, 1)

	s.pendingMu.Lock()
	s.pending[id] = reply
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}()

	s.push(dashboardEvent{Type: "confirm", ID: id, Prompt: prompt})

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	case <-timer.C:
		s.log.WithField("confirm_id", id).Warn("Confirmation timed out")
		return false
	}
}

func (s *dashboardSession) resolve(id string, ok bool) {
	s.pendingMu.Lock()
	reply, found := s.pending[id]
	s.pendingMu.Unlock()
	if !found {
		return
	}
	select {
	case reply <- ok:
	default:
	}
}

func (s *dashboardSession) pushState() {
	s.push(dashboardEvent{Type: "state", Offline: s.ctrl.Offline(), Data: s.ctrl.Snapshot()})
}

func (s *dashboardSession) push(ev dashboardEvent) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(ev); err != nil {
		s.log.WithError(err).WithField("event", ev.Type).Debug("Dropping dashboard event")
	}
}
