package services

import (
	"context"
	"fmt"

	"voicefirst-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
)

// PushNotifier sends APNs alerts for out-of-band events. A nil client
// disables pushes without disabling the caller.
type PushNotifier struct {
	client *apns2.Client
	topic  string
	users  UserStore
}

// NewPushNotifier creates a new push notifier
func NewPushNotifier(client *apns2.Client, topic string, users UserStore) *PushNotifier {
	return &PushNotifier{
		client: client,
		topic:  topic,
		users:  users,
	}
}

// VoiceProcessed notifies the user that their voice introduction finished
// processing. Delivery is best-effort.
func (n *PushNotifier) VoiceProcessed(ctx context.Context, userID string, status models.ProcessingStatus) {
	if n == nil || n.client == nil {
		return
	}

	user, err := n.users.GetByID(ctx, userID)
	if err != nil || user.PushToken == nil {
		return
	}

	alert := "Your voice introduction is ready. You can start messaging!"
	if status == models.ProcessingFailed {
		alert = "We couldn't process your voice introduction. Please re-record it."
	}

	notification := &apns2.Notification{
		DeviceToken: *user.PushToken,
		Topic:       n.topic,
		Payload:     []byte(fmt.Sprintf(`{"aps":{"alert":%q}}`, alert)),
	}

	resp, err := n.client.PushWithContext(ctx, notification)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send push notification")
		return
	}
	if !resp.Sent() {
		log.Warn().
			Str("user_id", userID).
			Str("apns_reason", resp.Reason).
			Msg("Push notification rejected")
	}
}
