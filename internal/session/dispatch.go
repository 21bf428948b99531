package session

import (
	"context"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/messaging"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/notify"
	"ngabarin/realtime/internal/repository"
	ws "ngabarin/realtime/internal/websocket"
)

// errUnknownEvent is reported for inbound event types nothing handles
var errUnknownEvent = apperror.New(apperror.KindValidation, "unknown_event", "Unknown event type")

// result is what a handler reports back through an ack
type result struct {
	id   string
	data interface{}
}

// Dispatch handles one inbound event. Events of a connection are handled in
// the order they were read.
func (s *Session) Dispatch(ctx context.Context, msg ws.IncomingMessage) {
	res, err := s.handle(ctx, msg)
	if err != nil {
		logger.Debug("ws_event_failed", "event", msg.Type, "user_id", s.user.ID, "code", apperror.CodeOf(err))
	}

	switch {
	case msg.AckID != "":
		ack := ws.AckPayload{OK: err == nil, ID: res.id, Data: res.data}
		if err != nil {
			ack.Error = apperror.ToPayload(err)
		}
		s.client.Reply(ws.WSMessage{Type: ws.EventAck, AckID: msg.AckID, Payload: ack})
	case err != nil:
		s.client.Reply(ws.WSMessage{Type: ws.EventError, Payload: apperror.ToPayload(err)})
	}
}

func (s *Session) handle(ctx context.Context, msg ws.IncomingMessage) (result, error) {
	switch msg.Type {
	case ws.EventJoinAdmin:
		return result{}, s.joinAdmin()

	case ws.EventGroupJoin, ws.EventGroupLeave:
		var p ws.GroupPayload
		if err := decode(msg, &p); err != nil {
			return result{}, err
		}
		return result{}, s.membership(ctx, p.GroupID, msg.Type == ws.EventGroupJoin)

	case ws.EventTypingStart, ws.EventTypingStop:
		var p ws.GroupPayload
		if err := decode(msg, &p); err != nil {
			return result{}, err
		}
		return result{}, s.typing(p.GroupID, msg.Type)

	case ws.EventMessageSend:
		var p ws.SendPayload
		if err := decode(msg, &p); err != nil {
			return result{}, err
		}
		created, err := s.manager.pipeline.Send(ctx, s.user, messaging.SendInput{
			Text:         p.Text,
			File:         p.File,
			GroupID:      p.GroupID,
			TargetGroups: p.TargetGroups,
		})
		if err != nil {
			return result{}, err
		}
		return result{id: created.ID}, nil

	case ws.EventMessageEdit:
		var p ws.EditPayload
		if err := decode(msg, &p); err != nil {
			return result{}, err
		}
		edited, err := s.manager.pipeline.Edit(ctx, s.user, p.MessageID, p.Text)
		if err != nil {
			return result{}, err
		}
		return result{id: edited.ID}, nil

	case ws.EventMessageDelete:
		var p ws.MessageRefPayload
		if err := decode(msg, &p); err != nil {
			return result{}, err
		}
		deleted, err := s.manager.pipeline.Delete(ctx, s.user, p.MessageID)
		if err != nil {
			return result{}, err
		}
		return result{id: deleted.ID}, nil

	case ws.EventMessageForward:
		var p ws.ForwardPayload
		if err := decode(msg, &p); err != nil {
			return result{}, err
		}
		created, err := s.manager.pipeline.Forward(ctx, s.user, p.MessageID, p.GroupIDs)
		if err != nil {
			return result{}, err
		}
		ids := make([]string, 0, len(created))
		for _, m := range created {
			ids = append(ids, m.ID)
		}
		return result{data: ids}, nil

	case ws.EventMessageDelivered, ws.EventMessageSeen:
		var p ws.ReceiptPayload
		if err := decode(msg, &p); err != nil {
			return result{}, err
		}
		kind := repository.ReceiptDelivered
		if msg.Type == ws.EventMessageSeen {
			kind = repository.ReceiptSeen
		}
		n, err := s.manager.pipeline.Acknowledge(ctx, s.user, p.MessageIDs, kind)
		if err != nil {
			return result{}, err
		}
		return result{data: map[string]int64{"updated": n}}, nil

	case ws.EventNotificationsFetch:
		list, err := s.manager.notifier.Store().Fetch(ctx, s.user.ID)
		if err != nil {
			return result{}, err
		}
		return result{data: list}, nil

	case ws.EventNotificationsSeen:
		return result{}, s.manager.notifier.Store().MarkSeen(ctx, s.user.ID)

	case ws.EventNotificationsClear:
		return result{}, s.manager.notifier.Store().Clear(ctx, s.user.ID)

	default:
		return result{}, errUnknownEvent
	}
}

func decode(msg ws.IncomingMessage, v interface{}) error {
	if err := msg.Decode(v); err != nil {
		return apperror.Wrap(apperror.ErrInvalidRequestBody, err)
	}
	return nil
}

func (s *Session) joinAdmin() error {
	if !s.user.IsAdmin() {
		return apperror.ErrNotAdmin
	}
	s.manager.hub.Join(s.client, ws.AdminRoom)
	return nil
}

// membership joins or leaves a group room. The group is not required to
// exist; notifications are only queued when it does.
func (s *Session) membership(ctx context.Context, groupID string, join bool) error {
	if groupID == "" {
		return apperror.ErrNoTargetGroup
	}
	room := ws.GroupRoom(groupID)
	event := ws.EventUserLeft
	if join {
		s.manager.hub.Join(s.client, room)
		event = ws.EventUserJoined
	} else {
		s.manager.hub.Leave(s.client, room)
	}

	s.manager.emitter.EmitToRoom(room, event, ws.MembershipPayload{
		UserID:   s.user.ID,
		Username: s.user.Username,
	}, s.client.ID)

	group, err := s.manager.groups.FindByID(ctx, groupID)
	if err != nil {
		logger.Debug("membership_group_lookup_failed", "group_id", groupID, "error", err)
		return nil
	}

	tmpl := notify.Template{
		Type:       models.NotificationJoined,
		Title:      s.user.Username + " joined " + group.Name,
		GroupID:    group.ID,
		FromUserID: s.user.ID,
	}
	if !join {
		tmpl.Type = models.NotificationLeft
		tmpl.Title = s.user.Username + " left " + group.Name
	}
	s.manager.notifier.Enqueue(ctx, group.Recipients(s.user.ID), tmpl)
	return nil
}

func (s *Session) typing(groupID string, event ws.EventType) error {
	if groupID == "" {
		return apperror.ErrNoTargetGroup
	}
	s.manager.emitter.EmitToRoom(ws.GroupRoom(groupID), event, ws.TypingPayload{
		UserID:   s.user.ID,
		Username: s.user.Username,
		GroupID:  groupID,
	}, s.client.ID)
	return nil
}
