package notify

import (
	"log/slog"
	"sync"
)

// Event names pushed to user channels.
const (
	EventBalanceUpdate     = "balance_update"
	EventGameBalanceUpdate = "game_balance_update"
	EventTransactionUpdate = "transaction_update"
	EventLevelUp           = "level_up"
	EventBoosterExpired    = "booster_expired"
	EventReferralUpdate    = "referral_update"
	EventUserUpdate        = "user_update"
)

// Notifier pushes a named event to a user's channel. Delivery is
// fire-and-forget: implementations must not block the caller and the core
// never depends on acknowledgment.
type Notifier interface {
	Notify(userID int64, event string, payload any)
}

// LogNotifier writes events to the structured logger. Used as a fallback
// when no websocket hub is attached.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(userID int64, event string, payload any) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("notify", "user_id", userID, "event", event, "payload", payload)
}

// CapturedEvent is one recorded notification.
type CapturedEvent struct {
	UserID  int64
	Event   string
	Payload any
}

// Capture records every notification. Test helper.
type Capture struct {
	mu     sync.Mutex
	events []CapturedEvent
}

func (c *Capture) Notify(userID int64, event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, CapturedEvent{UserID: userID, Event: event, Payload: payload})
}

// Events returns a copy of everything recorded so far.
func (c *Capture) Events() []CapturedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CapturedEvent(nil), c.events...)
}

// ByName returns the recorded events with the given name.
func (c *Capture) ByName(event string) []CapturedEvent {
	var res []CapturedEvent
	for _, e := range c.Events() {
		if e.Event == event {
			res = append(res, e)
		}
	}
	return res
}
