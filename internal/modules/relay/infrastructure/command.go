package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"swiftDropWs/internal/modules/relay/application/port"
	"swiftDropWs/internal/modules/relay/domain"
	"swiftDropWs/internal/shared/auth"
)

// Action is the inbound wire frame: an action name plus an opaque payload.
type Action struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (a Action) key() string {
	return strings.ToLower(strings.TrimSpace(a.Action))
}

type actionHandler func(ctx context.Context, client *Client, action Action)

// CommandProcessor routes inbound actions, enforcing the per-connection state
// machine: unauthenticated connections may only authenticate and ping, every
// other action additionally checks role and ownership. Rejections never close
// the connection; the sender gets a system error event instead.
type CommandProcessor struct {
	hub       *Hub
	validator auth.TokenValidator
	ownership port.OwnershipResolver
	handlers  map[string]actionHandler
	timeout   time.Duration
}

func NewCommandProcessor(hub *Hub, validator auth.TokenValidator, ownership port.OwnershipResolver) *CommandProcessor {
	p := &CommandProcessor{
		hub:       hub,
		validator: validator,
		ownership: ownership,
		handlers:  make(map[string]actionHandler),
		timeout:   5 * time.Second,
	}
	p.handlers[domain.ActionAuthenticate] = p.handleAuthenticate
	p.handlers[domain.ActionTrackOrder] = p.handleTrackOrder
	p.handlers[domain.ActionCourierLocation] = p.handleCourierLocation
	p.handlers[domain.ActionHubInventory] = p.handleHubInventory
	p.handlers[domain.ActionNewOrder] = p.handleNewOrder
	p.handlers[domain.ActionSendMessage] = p.handleSendMessage
	p.handlers[domain.ActionEmergencyAlert] = p.handleEmergencyAlert
	p.handlers[domain.ActionPing] = p.handlePing
	return p
}

func (p *CommandProcessor) Process(client *Client, action Action) {
	key := action.key()
	if key == "" {
		return
	}
	handler, ok := p.handlers[key]
	if !ok {
		slog.Debug("ws action ignored", slog.String("socketId", client.socketID), slog.String("action", key))
		sendError(client, key, "unsupported action")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	handler(ctx, client, action)
}

func (p *CommandProcessor) handleAuthenticate(_ context.Context, client *Client, action Action) {
	var cmd domain.AuthenticateCommand
	if err := json.Unmarshal(action.Payload, &cmd); err != nil {
		sendError(client, action.key(), "invalid payload")
		return
	}
	if err := cmd.Validate(); err != nil {
		sendError(client, action.key(), err.Error())
		return
	}
	p.authenticate(client, cmd)
}

// AuthenticateWithToken completes the handshake from a transport-supplied
// token (Authorization header or query parameter) before any frame arrives
// on the socket. Identity and role come entirely from the token claims.
func (p *CommandProcessor) AuthenticateWithToken(client *Client, token string) {
	p.authenticate(client, domain.AuthenticateCommand{Token: token})
}

func (p *CommandProcessor) authenticate(client *Client, cmd domain.AuthenticateCommand) {
	claims, err := p.validator.Validate(cmd.Token)
	if err != nil {
		// Failed handshake keeps the connection open but unauthenticated;
		// privileged actions stay denied until a later attempt succeeds.
		slog.Warn("ws authenticate rejected", slog.String("socketId", client.socketID), slog.Any("error", err))
		sendError(client, domain.ActionAuthenticate, "invalid token")
		return
	}

	userID := claims.Subject
	if trimmed := strings.TrimSpace(cmd.UserID); trimmed != "" && trimmed != userID {
		sendError(client, domain.ActionAuthenticate, "token subject mismatch")
		return
	}
	role := domain.NormalizeRole(claims.Role)
	if role == "" {
		role = domain.NormalizeRole(cmd.UserType)
	}
	if role == "" || (domain.NormalizeRole(cmd.UserType) != "" && role != domain.NormalizeRole(cmd.UserType)) {
		sendError(client, domain.ActionAuthenticate, "role mismatch")
		return
	}

	client.setIdentity(userID, role)
	p.hub.bindUser(client, userID)
	p.hub.subscribe(client, domain.PersonalTopic(role, userID))
	if room := domain.RoleRoom(role); room != "" {
		p.hub.subscribe(client, room)
	}

	slog.Info("ws authenticated", slog.String("socketId", client.socketID), slog.String("userId", userID), slog.String("userType", role))
	client.SendMessage(domain.BuildAuthenticatedMessage(client.socketID, userID, role, time.Now()))
}

func (p *CommandProcessor) handleTrackOrder(_ context.Context, client *Client, action Action) {
	if !client.Authenticated() {
		sendError(client, action.key(), "not authenticated")
		return
	}
	orderID := decodeOrderID(action.Payload)
	if orderID == "" {
		sendError(client, action.key(), "missing orderId")
		return
	}
	p.hub.subscribe(client, domain.OrderTopic(orderID))
	slog.Debug("ws tracking order", slog.String("socketId", client.socketID), slog.String("orderId", orderID))
}

func (p *CommandProcessor) handleCourierLocation(ctx context.Context, client *Client, action Action) {
	if !p.requireRole(client, action, domain.RoleCourier) {
		return
	}
	var cmd domain.CourierLocationCommand
	if err := json.Unmarshal(action.Payload, &cmd); err != nil {
		sendError(client, action.key(), "invalid payload")
		return
	}
	if err := cmd.Validate(); err != nil {
		sendError(client, action.key(), err.Error())
		return
	}
	if !client.locLimiter.Allow() {
		slog.Debug("ws location update throttled", slog.String("socketId", client.socketID))
		return
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		// Position without an active delivery: accepted, nothing to fan out.
		return
	}
	assigned, err := p.ownership.OrderCourier(ctx, orderID)
	if err != nil {
		p.denyOnOwnershipError(client, action, err)
		return
	}
	if assigned != client.UserID() {
		sendError(client, action.key(), "not assigned to this order")
		return
	}
	p.hub.Broadcast(ctx, domain.BuildCourierLocationMessage(client.UserID(), cmd, time.Now()))
}

func (p *CommandProcessor) handleHubInventory(ctx context.Context, client *Client, action Action) {
	if !p.requireRole(client, action, domain.RoleHubOwner) {
		return
	}
	var cmd domain.HubInventoryCommand
	if err := json.Unmarshal(action.Payload, &cmd); err != nil {
		sendError(client, action.key(), "invalid payload")
		return
	}
	if err := cmd.Validate(); err != nil {
		sendError(client, action.key(), err.Error())
		return
	}
	owner, err := p.ownership.HubOwner(ctx, cmd.HubID)
	if err != nil {
		p.denyOnOwnershipError(client, action, err)
		return
	}
	if owner != client.UserID() {
		sendError(client, action.key(), "not the owner of this hub")
		return
	}
	p.hub.BroadcastAll(ctx, domain.BuildHubInventoryChangedMessage(client.UserID(), cmd, time.Now()))
}

func (p *CommandProcessor) handleNewOrder(ctx context.Context, client *Client, action Action) {
	if !client.Authenticated() {
		sendError(client, action.key(), "not authenticated")
		return
	}
	var cmd domain.NewOrderCommand
	if err := json.Unmarshal(action.Payload, &cmd); err != nil {
		sendError(client, action.key(), "invalid payload")
		return
	}
	if err := cmd.Validate(); err != nil {
		sendError(client, action.key(), err.Error())
		return
	}

	now := time.Now()
	if hubID := cmd.HubID(); hubID != "" {
		owner, err := p.ownership.HubOwner(ctx, hubID)
		if err != nil {
			slog.Warn("ws new order: hub owner lookup failed", slog.String("hubId", hubID), slog.Any("error", err))
		} else {
			p.hub.SendToUser(ctx, owner, domain.BuildNewOrderNotification(owner, cmd, now))
		}
	}
	p.hub.Broadcast(ctx, domain.BuildDeliveryOpportunity(cmd, now))
	slog.Info("ws new order announced", slog.String("socketId", client.socketID), slog.String("orderId", cmd.OrderID()))
}

func (p *CommandProcessor) handleSendMessage(ctx context.Context, client *Client, action Action) {
	if !client.Authenticated() {
		sendError(client, action.key(), "not authenticated")
		return
	}
	var cmd domain.SendMessageCommand
	if err := json.Unmarshal(action.Payload, &cmd); err != nil {
		sendError(client, action.key(), "invalid payload")
		return
	}
	if err := cmd.Validate(); err != nil {
		sendError(client, action.key(), err.Error())
		return
	}

	msg := domain.BuildChatMessage(client.UserID(), cmd, time.Now())
	if recipient := strings.TrimSpace(cmd.RecipientID); recipient != "" {
		p.hub.SendToUser(ctx, recipient, msg)
		return
	}
	p.hub.Broadcast(ctx, msg)
}

func (p *CommandProcessor) handleEmergencyAlert(ctx context.Context, client *Client, action Action) {
	role := client.Role()
	if role != domain.RoleAdmin && role != domain.RoleHubOwner {
		sendError(client, action.key(), "forbidden")
		return
	}
	var cmd domain.EmergencyAlertCommand
	if err := json.Unmarshal(action.Payload, &cmd); err != nil {
		sendError(client, action.key(), "invalid payload")
		return
	}
	if err := cmd.Validate(); err != nil {
		sendError(client, action.key(), err.Error())
		return
	}
	slog.Warn("ws emergency alert", slog.String("socketId", client.socketID), slog.String("userId", client.UserID()))
	p.hub.BroadcastAll(ctx, domain.BuildEmergencyNotification(client.UserID(), cmd, time.Now()))
}

func (p *CommandProcessor) handlePing(_ context.Context, client *Client, _ Action) {
	client.SendMessage(domain.BuildPongMessage(time.Now()))
}

func (p *CommandProcessor) requireRole(client *Client, action Action, role string) bool {
	if !client.Authenticated() {
		sendError(client, action.key(), "not authenticated")
		return false
	}
	if client.Role() != role {
		sendError(client, action.key(), "forbidden")
		return false
	}
	return true
}

func (p *CommandProcessor) denyOnOwnershipError(client *Client, action Action, err error) {
	if errors.Is(err, port.ErrOwnershipNotFound) {
		sendError(client, action.key(), "unknown resource")
		return
	}
	slog.Warn("ws ownership lookup failed", slog.String("socketId", client.socketID), slog.String("action", action.key()), slog.Any("error", err))
	sendError(client, action.key(), "authorization unavailable")
}

func sendError(client *Client, action, reason string) {
	client.SendMessage(domain.BuildErrorMessage(action, reason, time.Now()))
}

// decodeOrderID accepts both a bare string payload and {"orderId": "..."}:
// older clients emit the literal order id.
func decodeOrderID(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}
	var literal string
	if err := json.Unmarshal(payload, &literal); err == nil {
		return strings.TrimSpace(literal)
	}
	var cmd domain.TrackOrderCommand
	if err := json.Unmarshal(payload, &cmd); err == nil {
		return strings.TrimSpace(cmd.OrderID)
	}
	return ""
}
