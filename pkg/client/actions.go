package client

// Outbound action names on the relay wire.
const (
	actionAuthenticate    = "authenticate"
	actionTrackOrder      = "track_order"
	actionCourierLocation = "courier_location_update"
	actionHubInventory    = "hub_inventory_update"
	actionNewOrder        = "new_order"
	actionSendMessage     = "send_message"
	actionEmergencyAlert  = "emergency_alert"
	actionPing            = "ping"
)

// TrackOrder subscribes this connection to one order's event stream.
func (c *Client) TrackOrder(orderID string) error {
	return c.emit(actionTrackOrder, map[string]string{"orderId": orderID})
}

// UpdateCourierLocation pushes a courier position. orderID may be empty when
// the position is not tied to an active delivery.
func (c *Client) UpdateCourierLocation(latitude, longitude float64, orderID string) error {
	payload := map[string]any{
		"latitude":  latitude,
		"longitude": longitude,
	}
	if orderID != "" {
		payload["orderId"] = orderID
	}
	return c.emit(actionCourierLocation, payload)
}

// UpdateHubInventory announces a stock delta; action is add, remove or update.
func (c *Client) UpdateHubInventory(hubID, productID string, quantity int, action string) error {
	return c.emit(actionHubInventory, map[string]any{
		"hubId":     hubID,
		"productId": productID,
		"quantity":  quantity,
		"action":    action,
	})
}

// CreateNewOrder signals a freshly placed order to hub staff and couriers.
// The authoritative order record is created through the REST API, not here.
func (c *Client) CreateNewOrder(orderData map[string]any) error {
	return c.emit(actionNewOrder, map[string]any{"orderData": orderData})
}

// SendMessage delivers a chat message to a user, or to an order's
// participants when recipientID is empty. messageType defaults to "text".
func (c *Client) SendMessage(recipientID, message, messageType, orderID string) error {
	if messageType == "" {
		messageType = "text"
	}
	payload := map[string]any{
		"message":     message,
		"messageType": messageType,
	}
	if recipientID != "" {
		payload["recipientId"] = recipientID
	}
	if orderID != "" {
		payload["orderId"] = orderID
	}
	return c.emit(actionSendMessage, payload)
}

// SendEmergencyAlert raises a platform-wide crisis notification. The server
// enforces that only admin and hub-owner connections may emit it.
func (c *Client) SendEmergencyAlert(alertData map[string]any) error {
	return c.emit(actionEmergencyAlert, map[string]any{"alertData": alertData})
}

// Ping asks the server for a pong, useful as an application-level liveness
// probe on top of the transport keepalive.
func (c *Client) Ping() error {
	return c.emit(actionPing, nil)
}
