package ws

// Envelope is the outbound event frame.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// InboundMessage is what clients send over the socket.
type InboundMessage struct {
	Event string `json:"event"`
}

const inboundClick = "click"
