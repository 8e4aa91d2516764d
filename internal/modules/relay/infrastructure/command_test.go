package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"swiftDropWs/internal/modules/relay/application/port"
	"swiftDropWs/internal/modules/relay/domain"
	"swiftDropWs/internal/shared/auth"
)

type stubValidator map[string]*auth.Claims

func (s stubValidator) Validate(token string) (*auth.Claims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrInvalidToken
}

type stubOwnership struct {
	orderCouriers map[string]string
	hubOwners     map[string]string
	err           error
}

func (s *stubOwnership) OrderCourier(_ context.Context, orderID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if courier, ok := s.orderCouriers[orderID]; ok {
		return courier, nil
	}
	return "", port.ErrOwnershipNotFound
}

func (s *stubOwnership) HubOwner(_ context.Context, hubID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if owner, ok := s.hubOwners[hubID]; ok {
		return owner, nil
	}
	return "", port.ErrOwnershipNotFound
}

type fixture struct {
	hub       *Hub
	proc      *CommandProcessor
	tokens    stubValidator
	ownership *stubOwnership
}

func newFixture() *fixture {
	f := &fixture{
		hub:    NewHub(),
		tokens: stubValidator{},
		ownership: &stubOwnership{
			orderCouriers: map[string]string{},
			hubOwners:     map[string]string{},
		},
	}
	f.proc = NewCommandProcessor(f.hub, f.tokens, f.ownership)
	return f
}

func (f *fixture) grantToken(userID, role string) string {
	token := "tok-" + userID
	f.tokens[token] = &auth.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
	return token
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

// authenticated attaches a fresh connection and completes the handshake as
// userID with the given role, draining the authenticated ack.
func (f *fixture) authenticated(t *testing.T, userID, role string) *Client {
	t.Helper()
	c := newTestClient(f.hub)
	token := f.grantToken(userID, role)
	f.proc.Process(c, Action{
		Action:  domain.ActionAuthenticate,
		Payload: mustJSON(t, map[string]string{"userId": userID, "userType": role, "token": token}),
	})
	msg := recvMessage(t, c)
	if msg.Action != domain.EventAuthenticated {
		t.Fatalf("handshake failed, got action %q: %+v", msg.Action, msg)
	}
	return c
}

func expectError(t *testing.T, c *Client, reason string) {
	t.Helper()
	msg := recvMessage(t, c)
	if msg.Action != domain.EventError {
		t.Fatalf("expected error event, got %q", msg.Action)
	}
	if got := msg.Metadata["reason"]; got != reason {
		t.Fatalf("error reason = %q, want %q", got, reason)
	}
}

func TestAuthenticateJoinsPersonalAndRoleRooms(t *testing.T) {
	f := newFixture()
	c := f.authenticated(t, "u1", domain.RoleCourier)

	if !c.Authenticated() || c.UserID() != "u1" || c.Role() != domain.RoleCourier {
		t.Fatalf("identity not set: userId=%q role=%q", c.UserID(), c.Role())
	}
	for _, topic := range []string{"courier:u1", domain.TopicCouriers} {
		if _, ok := c.subscribed[topic]; !ok {
			t.Fatalf("connection not subscribed to %q", topic)
		}
	}

	// Personal delivery works without any explicit subscribe step.
	f.hub.SendToUser(context.Background(), "u1", domain.BuildDeliveryAssignedMessage("u1", map[string]any{"orderId": "o1"}, time.Now()))
	if msg := recvMessage(t, c); msg.Action != domain.EventDeliveryAssigned {
		t.Fatalf("unexpected action %q", msg.Action)
	}
}

func TestAuthenticateInvalidTokenKeepsConnectionOpen(t *testing.T) {
	f := newFixture()
	c := newTestClient(f.hub)

	f.proc.Process(c, Action{
		Action:  domain.ActionAuthenticate,
		Payload: mustJSON(t, map[string]string{"userType": "customer", "token": "forged"}),
	})
	expectError(t, c, "invalid token")

	if c.Authenticated() {
		t.Fatal("connection must stay unauthenticated")
	}
	if f.hub.ConnectionStats().Total != 1 {
		t.Fatal("connection must stay attached after a failed handshake")
	}

	// A later attempt with a valid token succeeds on the same connection.
	token := f.grantToken("u1", domain.RoleCustomer)
	f.proc.Process(c, Action{
		Action:  domain.ActionAuthenticate,
		Payload: mustJSON(t, map[string]string{"userType": "customer", "token": token}),
	})
	if msg := recvMessage(t, c); msg.Action != domain.EventAuthenticated {
		t.Fatalf("retry handshake failed: %+v", msg)
	}
}

func TestAuthenticateSubjectMismatchRejected(t *testing.T) {
	f := newFixture()
	c := newTestClient(f.hub)
	token := f.grantToken("u1", domain.RoleCustomer)

	f.proc.Process(c, Action{
		Action:  domain.ActionAuthenticate,
		Payload: mustJSON(t, map[string]string{"userId": "someone-else", "userType": "customer", "token": token}),
	})

	expectError(t, c, "token subject mismatch")
	if c.Authenticated() {
		t.Fatal("mismatched handshake must not authenticate")
	}
}

func TestAuthenticateWithTokenUsesClaimsOnly(t *testing.T) {
	f := newFixture()
	c := newTestClient(f.hub)
	token := f.grantToken("u1", domain.RoleCourier)

	f.proc.AuthenticateWithToken(c, token)

	if msg := recvMessage(t, c); msg.Action != domain.EventAuthenticated {
		t.Fatalf("handshake failed: %+v", msg)
	}
	if c.UserID() != "u1" || c.Role() != domain.RoleCourier {
		t.Fatalf("identity not taken from claims: userId=%q role=%q", c.UserID(), c.Role())
	}
	if _, ok := c.subscribed[domain.TopicCouriers]; !ok {
		t.Fatal("role room not joined")
	}
}

func TestAuthenticateWithTokenRejectsForgedToken(t *testing.T) {
	f := newFixture()
	c := newTestClient(f.hub)

	f.proc.AuthenticateWithToken(c, "forged")

	expectError(t, c, "invalid token")
	if c.Authenticated() {
		t.Fatal("connection must stay unauthenticated")
	}
	if f.hub.ConnectionStats().Total != 1 {
		t.Fatal("connection must stay attached")
	}
}

func TestUnauthenticatedPrivilegedActionsDenied(t *testing.T) {
	f := newFixture()
	c := newTestClient(f.hub)
	bystander := newTestClient(f.hub)

	payloads := map[string]any{
		domain.ActionTrackOrder:      map[string]string{"orderId": "o1"},
		domain.ActionCourierLocation: map[string]any{"latitude": 1.0, "longitude": 2.0},
		domain.ActionHubInventory:    map[string]any{"hubId": "h1", "productId": "p1", "quantity": 3, "action": "add"},
		domain.ActionSendMessage:     map[string]string{"recipientId": "u2", "message": "hi"},
	}
	for action, payload := range payloads {
		f.proc.Process(c, Action{Action: action, Payload: mustJSON(t, payload)})
		expectError(t, c, "not authenticated")
	}

	assertNoMessage(t, bystander)
}

func TestTrackOrderSubscribesToOrderTopic(t *testing.T) {
	f := newFixture()
	c := f.authenticated(t, "u1", domain.RoleCustomer)

	// The legacy payload shape, a bare order id string, is accepted too.
	f.proc.Process(c, Action{Action: domain.ActionTrackOrder, Payload: mustJSON(t, "o1")})

	f.hub.Broadcast(context.Background(), domain.BuildOrderUpdateMessage("o1", map[string]any{"status": "preparing"}, time.Now()))
	msg := recvMessage(t, c)
	if msg.Action != domain.EventOrderUpdate || msg.ResourceID != "o1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestCourierLocationRequiresCourierRole(t *testing.T) {
	f := newFixture()
	c := f.authenticated(t, "u1", domain.RoleCustomer)

	f.proc.Process(c, Action{
		Action:  domain.ActionCourierLocation,
		Payload: mustJSON(t, map[string]any{"latitude": 1.0, "longitude": 2.0, "orderId": "o1"}),
	})

	expectError(t, c, "forbidden")
}

func TestCourierLocationFromAssignedCourierFansOut(t *testing.T) {
	f := newFixture()
	f.ownership.orderCouriers["o1"] = "c1"
	courier := f.authenticated(t, "c1", domain.RoleCourier)
	watcher := f.authenticated(t, "u1", domain.RoleCustomer)
	f.hub.subscribe(watcher, domain.OrderTopic("o1"))

	f.proc.Process(courier, Action{
		Action:  domain.ActionCourierLocation,
		Payload: mustJSON(t, map[string]any{"latitude": 48.85, "longitude": 2.35, "orderId": "o1"}),
	})

	msg := recvMessage(t, watcher)
	if msg.Action != domain.EventCourierLocation || msg.Topic != "order:o1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	var data struct {
		CourierID string  `json:"courierId"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	raw, _ := json.Marshal(msg.Data)
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode location: %v", err)
	}
	if data.CourierID != "c1" || data.Latitude != 48.85 || data.Longitude != 2.35 {
		t.Fatalf("unexpected location payload: %+v", data)
	}
	assertNoMessage(t, courier)
}

func TestCourierLocationFromUnassignedCourierDenied(t *testing.T) {
	f := newFixture()
	f.ownership.orderCouriers["o1"] = "someone-else"
	courier := f.authenticated(t, "c1", domain.RoleCourier)
	watcher := f.authenticated(t, "u1", domain.RoleCustomer)
	f.hub.subscribe(watcher, domain.OrderTopic("o1"))

	f.proc.Process(courier, Action{
		Action:  domain.ActionCourierLocation,
		Payload: mustJSON(t, map[string]any{"latitude": 1.0, "longitude": 2.0, "orderId": "o1"}),
	})

	expectError(t, courier, "not assigned to this order")
	assertNoMessage(t, watcher)
}

func TestCourierLocationWithoutOrderIsAcceptedQuietly(t *testing.T) {
	f := newFixture()
	courier := f.authenticated(t, "c1", domain.RoleCourier)

	f.proc.Process(courier, Action{
		Action:  domain.ActionCourierLocation,
		Payload: mustJSON(t, map[string]any{"latitude": 1.0, "longitude": 2.0}),
	})

	assertNoMessage(t, courier)
}

func TestCourierLocationOutOfRangeRejected(t *testing.T) {
	f := newFixture()
	courier := f.authenticated(t, "c1", domain.RoleCourier)

	f.proc.Process(courier, Action{
		Action:  domain.ActionCourierLocation,
		Payload: mustJSON(t, map[string]any{"latitude": 91.0, "longitude": 2.0, "orderId": "o1"}),
	})

	expectError(t, courier, "latitude out of range")
}

func TestCourierLocationThrottledSilently(t *testing.T) {
	f := newFixture()
	f.ownership.orderCouriers["o1"] = "c1"
	courier := NewClient(f.hub, nil, 8, rate.Limit(1), 1, nil)
	f.hub.AttachClient(courier)
	token := f.grantToken("c1", domain.RoleCourier)
	f.proc.Process(courier, Action{
		Action:  domain.ActionAuthenticate,
		Payload: mustJSON(t, map[string]string{"userType": "courier", "token": token}),
	})
	recvMessage(t, courier) // authenticated ack
	watcher := f.authenticated(t, "u1", domain.RoleCustomer)
	f.hub.subscribe(watcher, domain.OrderTopic("o1"))

	payload := mustJSON(t, map[string]any{"latitude": 1.0, "longitude": 2.0, "orderId": "o1"})
	f.proc.Process(courier, Action{Action: domain.ActionCourierLocation, Payload: payload})
	f.proc.Process(courier, Action{Action: domain.ActionCourierLocation, Payload: payload})

	// The burst allowance lets the first update through; the second is
	// dropped without an error event.
	recvMessage(t, watcher)
	assertNoMessage(t, watcher)
	assertNoMessage(t, courier)
}

func TestHubInventoryRequiresOwnership(t *testing.T) {
	f := newFixture()
	f.ownership.hubOwners["h1"] = "someone-else"
	owner := f.authenticated(t, "ho1", domain.RoleHubOwner)

	f.proc.Process(owner, Action{
		Action:  domain.ActionHubInventory,
		Payload: mustJSON(t, map[string]any{"hubId": "h1", "productId": "p1", "quantity": 5, "action": "add"}),
	})

	expectError(t, owner, "not the owner of this hub")
}

func TestHubInventoryFromOwnerBroadcastsToEveryone(t *testing.T) {
	f := newFixture()
	f.ownership.hubOwners["h1"] = "ho1"
	owner := f.authenticated(t, "ho1", domain.RoleHubOwner)
	idle := newTestClient(f.hub)

	f.proc.Process(owner, Action{
		Action:  domain.ActionHubInventory,
		Payload: mustJSON(t, map[string]any{"hubId": "h1", "productId": "p1", "quantity": 5, "action": "update"}),
	})

	for _, c := range []*Client{owner, idle} {
		msg := recvMessage(t, c)
		if msg.Action != domain.EventHubInventoryChanged || msg.ResourceID != "h1" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	}
}

func TestNewOrderNotifiesHubOwnerAndCourierPool(t *testing.T) {
	f := newFixture()
	f.ownership.hubOwners["h1"] = "ho1"
	customer := f.authenticated(t, "u1", domain.RoleCustomer)
	owner := f.authenticated(t, "ho1", domain.RoleHubOwner)
	courier := f.authenticated(t, "c1", domain.RoleCourier)

	f.proc.Process(customer, Action{
		Action:  domain.ActionNewOrder,
		Payload: mustJSON(t, map[string]any{"orderData": map[string]any{"orderId": "o1", "hubId": "h1", "total": 12.5}}),
	})

	ownerMsg := recvMessage(t, owner)
	if ownerMsg.Action != domain.EventNewOrderNotification || ownerMsg.ResourceID != "o1" {
		t.Fatalf("unexpected owner notification: %+v", ownerMsg)
	}
	courierMsg := recvMessage(t, courier)
	if courierMsg.Action != domain.EventDeliveryOpportunity || courierMsg.Topic != domain.TopicCouriers {
		t.Fatalf("unexpected courier offer: %+v", courierMsg)
	}
	assertNoMessage(t, customer)
}

func TestSendMessageDirectAndOrderScoped(t *testing.T) {
	f := newFixture()
	sender := f.authenticated(t, "u1", domain.RoleCustomer)
	recipient := f.authenticated(t, "c1", domain.RoleCourier)
	watcher := f.authenticated(t, "u2", domain.RoleCustomer)
	f.hub.subscribe(watcher, domain.OrderTopic("o1"))

	f.proc.Process(sender, Action{
		Action:  domain.ActionSendMessage,
		Payload: mustJSON(t, map[string]string{"recipientId": "c1", "message": "on my way?"}),
	})
	direct := recvMessage(t, recipient)
	if direct.Action != domain.EventNewMessage || direct.Metadata["senderId"] != "u1" {
		t.Fatalf("unexpected direct message: %+v", direct)
	}
	assertNoMessage(t, watcher)

	f.proc.Process(sender, Action{
		Action:  domain.ActionSendMessage,
		Payload: mustJSON(t, map[string]string{"orderId": "o1", "message": "leave it at the door"}),
	})
	scoped := recvMessage(t, watcher)
	if scoped.Action != domain.EventNewMessage || scoped.ResourceID != "o1" {
		t.Fatalf("unexpected order message: %+v", scoped)
	}
}

func TestEmergencyAlertRoleGate(t *testing.T) {
	f := newFixture()
	customer := f.authenticated(t, "u1", domain.RoleCustomer)
	admin := f.authenticated(t, "a1", domain.RoleAdmin)
	payload := mustJSON(t, map[string]any{"alertData": map[string]any{"reason": "hub fire", "hubId": "h1"}})

	f.proc.Process(customer, Action{Action: domain.ActionEmergencyAlert, Payload: payload})
	expectError(t, customer, "forbidden")
	assertNoMessage(t, admin)

	f.proc.Process(admin, Action{Action: domain.ActionEmergencyAlert, Payload: payload})
	for _, c := range []*Client{customer, admin} {
		msg := recvMessage(t, c)
		if msg.Action != domain.EventEmergencyNotification {
			t.Fatalf("unexpected action %q", msg.Action)
		}
	}
}

func TestOwnershipLookupFailureDeniesWithoutLeak(t *testing.T) {
	f := newFixture()
	f.ownership.err = fmt.Errorf("%w: %v", port.ErrOwnershipUnavailable, errors.New("connection refused"))
	courier := f.authenticated(t, "c1", domain.RoleCourier)

	f.proc.Process(courier, Action{
		Action:  domain.ActionCourierLocation,
		Payload: mustJSON(t, map[string]any{"latitude": 1.0, "longitude": 2.0, "orderId": "o1"}),
	})

	expectError(t, courier, "authorization unavailable")
}

func TestPingAnswersPong(t *testing.T) {
	f := newFixture()
	c := newTestClient(f.hub)

	f.proc.Process(c, Action{Action: domain.ActionPing})

	if msg := recvMessage(t, c); msg.Action != domain.EventPong {
		t.Fatalf("unexpected action %q", msg.Action)
	}
}

func TestUnsupportedActionReported(t *testing.T) {
	f := newFixture()
	c := newTestClient(f.hub)

	f.proc.Process(c, Action{Action: "teleport_order"})

	expectError(t, c, "unsupported action")
}
