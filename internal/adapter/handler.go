package adapter

import (
	"context"
	"errors"

	"github.com/keepmind9/teamsbridge/internal/activity"
	"github.com/keepmind9/teamsbridge/internal/logger"
	"github.com/sirupsen/logrus"
)

// OnTurn is the inbound bridge, invoked once per HTTP-delivered turn. It
// normalizes the activity text, applies the conversation-kind rules, captures
// the conversation reference, and hands the normalized message to the
// receiver. It returns only after the receiver has acknowledged the message,
// so the HTTP response can be written.
func (a *Adapter) OnTurn(ctx context.Context, tc TurnContext) error {
	act := tc.Activity()
	if act == nil {
		return errors.New("turn carries no activity")
	}
	if act.Type != "" && act.Type != activity.TypeMessage {
		logger.WithField("type", act.Type).Debug("skipping-non-message-activity")
		return nil
	}

	act.Text = activity.Normalize(act.Text, a.opts.Identity)
	activity.ApplyKindRules(act, a.opts.Identity)

	roomKey := activity.RoomKey(act)
	a.store.Upsert(roomKey, activity.ReferenceFrom(act))

	msg := Message{
		ID:   act.ID,
		Text: act.Text,
	}
	if act.From != nil {
		msg.User = User{
			ID:   act.From.ID,
			Name: act.From.Name,
		}
	}
	msg.User.Room = roomKey
	msg.User.Message = tc

	logger.WithFields(logrus.Fields{
		"activity_id": act.ID,
		"room":        roomKey,
		"user_id":     msg.User.ID,
		"content_len": len(act.Text),
	}).Info("received-activity-normalized")

	return a.receiver.Receive(ctx, msg)
}
