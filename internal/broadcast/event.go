// Package broadcast delivers realtime chat and notification events. Delivery
// is best effort and always happens after the originating write commits.
package broadcast

import (
	"context"
	"fmt"

	"github.com/safar/storefront/internal/models"
)

const (
	EventMessageSent      = "message.sent"
	EventNotificationSent = "notification.sent"
	EventOrderPlaced      = "order.placed"
)

// Event is one payload fanned out to every listed channel.
type Event struct {
	Channels []string `json:"channels"`
	Name     string   `json:"event"`
	Payload  any      `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

func ConversationChannel(conversationID int64) string {
	return fmt.Sprintf("chat.conversation.%d", conversationID)
}

func UserChatChannel(userID int64) string {
	return fmt.Sprintf("chat.%d", userID)
}

func NotificationChannel(userID int64) string {
	return fmt.Sprintf("notifications.%d", userID)
}

// MessageSent reaches the conversation (when there is one) and both parties.
func MessageSent(m *models.Message) Event {
	var channels []string
	if m.ConversationID != nil {
		channels = append(channels, ConversationChannel(*m.ConversationID))
	}
	channels = append(channels, UserChatChannel(m.ReceiverID), UserChatChannel(m.SenderID))

	return Event{Channels: channels, Name: EventMessageSent, Payload: m}
}

type Notification struct {
	UserID int64          `json:"user_id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
}

func NotificationSent(n Notification) Event {
	return Event{
		Channels: []string{NotificationChannel(n.UserID)},
		Name:     EventNotificationSent,
		Payload:  n,
	}
}

// OrderPlaced tells the customer their order was recorded.
func OrderPlaced(o *models.Order) Event {
	return Event{
		Channels: []string{NotificationChannel(o.UserID)},
		Name:     EventOrderPlaced,
		Payload: Notification{
			UserID: o.UserID,
			Title:  "Order placed",
			Body:   fmt.Sprintf("Order #%d was placed. Total: %s", o.ID, o.TotalAmount.StringFixed(2)),
			Data: map[string]any{
				"order_id":     o.ID,
				"total_amount": o.TotalAmount,
				"status":       o.Status,
			},
		},
	}
}

// VoucherReceived tells a user a voucher grant was sent to them.
func VoucherReceived(g *models.UserVoucher) Event {
	n := Notification{
		UserID: g.UserID,
		Title:  "You received a voucher",
		Body:   fmt.Sprintf("Use code %s at checkout.", g.VoucherCode),
		Data: map[string]any{
			"user_voucher_id": g.ID,
			"voucher_code":    g.VoucherCode,
			"expires_at":      g.ExpiresAt,
		},
	}
	if g.Voucher != nil {
		n.Body = fmt.Sprintf("Use code %s at checkout for %d%% off.", g.VoucherCode, g.Voucher.Percent)
	}
	return NotificationSent(n)
}
