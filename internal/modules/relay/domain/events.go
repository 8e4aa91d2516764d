package domain

import "strings"

// Roles carried by authenticated connections. The auth service mints tokens
// with one of these in the role claim.
const (
	RoleCustomer = "customer"
	RoleCourier  = "courier"
	RoleHubOwner = "hubowner"
	RoleAdmin    = "admin"
)

// NormalizeRole maps token role spellings onto the canonical set, returning
// an empty string for anything unknown.
func NormalizeRole(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case RoleCustomer:
		return RoleCustomer
	case RoleCourier:
		return RoleCourier
	case RoleHubOwner, "hub-owner", "hub_owner":
		return RoleHubOwner
	case RoleAdmin:
		return RoleAdmin
	default:
		return ""
	}
}

// Inbound actions a client may emit over the socket.
const (
	ActionAuthenticate    = "authenticate"
	ActionTrackOrder      = "track_order"
	ActionCourierLocation = "courier_location_update"
	ActionHubInventory    = "hub_inventory_update"
	ActionNewOrder        = "new_order"
	ActionSendMessage     = "send_message"
	ActionEmergencyAlert  = "emergency_alert"
	ActionPing            = "ping"
)

// Outbound event names delivered to clients in Message.Action.
const (
	EventConnected             = "connected"
	EventAuthenticated         = "authenticated"
	EventError                 = "error"
	EventPong                  = "pong"
	EventOrderUpdate           = "order_update"
	EventCourierLocation       = "courier_location"
	EventHubInventoryChanged   = "hub_inventory_changed"
	EventNewOrderNotification  = "new_order_notification"
	EventDeliveryOpportunity   = "delivery_opportunity"
	EventDeliveryAssigned      = "delivery_assigned"
	EventNewMessage            = "new_message"
	EventSystemNotification    = "system_notification"
	EventEmergencyNotification = "emergency_notification"
	EventLowInventoryAlert     = "low_inventory_alert"
)

const (
	SystemEntity = "system"

	// Role rooms every authenticated connection of that role joins.
	TopicCouriers  = "couriers"
	TopicHubOwners = "hubowners"
	TopicAdmins    = "admin"
)

// OrderTopic returns the tracking topic for an order.
func OrderTopic(orderID string) string {
	return scopedTopic("order", orderID)
}

// PersonalTopic returns the personal room for a user of the given role.
// Personal events reach a user here without an explicit subscribe step.
func PersonalTopic(role, userID string) string {
	return scopedTopic(NormalizeRole(role), userID)
}

// RoleRoom returns the shared room for a role, or "" when the role has none.
func RoleRoom(role string) string {
	switch NormalizeRole(role) {
	case RoleCourier:
		return TopicCouriers
	case RoleHubOwner:
		return TopicHubOwners
	case RoleAdmin:
		return TopicAdmins
	default:
		return ""
	}
}

// HubOwnerTopic returns the personal room for a hub owner.
func HubOwnerTopic(userID string) string {
	return PersonalTopic(RoleHubOwner, userID)
}

// CourierTopic returns the personal room for a courier.
func CourierTopic(userID string) string {
	return PersonalTopic(RoleCourier, userID)
}

// CustomerTopic returns the personal room for a customer.
func CustomerTopic(userID string) string {
	return PersonalTopic(RoleCustomer, userID)
}

func scopedTopic(scope, id string) string {
	cleanScope := strings.TrimSpace(scope)
	cleanID := strings.TrimSpace(id)
	if cleanScope == "" || cleanID == "" {
		return ""
	}
	return cleanScope + ":" + cleanID
}
