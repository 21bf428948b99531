// Package messaging implements the send, forward, edit and delete pipeline
// and its broadcast and notification side effects.
package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/logger"
	"ngabarin/realtime/internal/metrics"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/notify"
	"ngabarin/realtime/internal/repository"
	"ngabarin/realtime/internal/tags"
	ws "ngabarin/realtime/internal/websocket"
)

const (
	// EditWindow is how long after creation a sender may edit a message
	EditWindow = 15 * time.Minute

	ForwardPrefix = "[Forwarded] "

	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// Notifier pushes notifications to users
type Notifier interface {
	Notify(ctx context.Context, recipients []string, tmpl notify.Template)
}

// Pipeline owns every message mutation. Each persisted record is broadcast
// to its own group room only after its write succeeds.
type Pipeline struct {
	groups   repository.GroupRepositoryInterface
	messages repository.MessageRepositoryInterface
	notifier Notifier
	emitter  ws.Emitter
	now      func() time.Time
}

func NewPipeline(
	groups repository.GroupRepositoryInterface,
	messages repository.MessageRepositoryInterface,
	notifier Notifier,
	emitter ws.Emitter,
	now func() time.Time,
) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		groups:   groups,
		messages: messages,
		notifier: notifier,
		emitter:  emitter,
		now:      now,
	}
}

// SendInput is a new message. GroupID defaults to the sender's group.
type SendInput struct {
	Text         string   `json:"text"`
	File         *string  `json:"file,omitempty"`
	GroupID      string   `json:"groupId"`
	TargetGroups []string `json:"targetGroups,omitempty"`
}

// Send persists and broadcasts a message, then fans it out to the groups
// named in TargetGroups or, failing that, to the groups whose region matches
// a tag in the text.
func (p *Pipeline) Send(ctx context.Context, sender *models.User, in SendInput) (*models.Message, error) {
	text := strings.TrimSpace(in.Text)
	file := normalizeFile(in.File)
	if text == "" && file == nil {
		return nil, apperror.ErrEmptyMessage
	}

	groupID := in.GroupID
	if groupID == "" {
		groupID = sender.DefaultGroup()
	}
	if groupID == "" {
		return nil, apperror.ErrNoTargetGroup
	}

	group, err := p.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !canPost(sender, group) {
		return nil, apperror.ErrNotGroupMember
	}

	msgTags := tags.Extract(text)
	forwards, err := p.resolveForwards(ctx, group.ID, in.TargetGroups, msgTags)
	if err != nil {
		return nil, err
	}
	forwardIDs := make([]string, 0, len(forwards))
	for _, g := range forwards {
		forwardIDs = append(forwardIDs, g.ID)
	}

	now := p.now()
	primary := &models.Message{
		ID:                uuid.NewString(),
		SenderID:          sender.ID,
		GroupID:           group.ID,
		Text:              text,
		File:              file,
		Tags:              msgTags,
		ForwardedToGroups: forwardIDs,
		DeliveredTo:       []string{},
		SeenBy:            []string{},
		Status:            models.StatusSent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := p.messages.Create(ctx, primary); err != nil {
		return nil, err
	}
	metrics.MessagesPersisted.WithLabelValues("primary").Inc()
	p.broadcastNew(ctx, primary, "")

	delivered := make([]models.Group, 0, len(forwards))
	for _, fg := range forwards {
		copyMsg := &models.Message{
			ID:                uuid.NewString(),
			SenderID:          sender.ID,
			GroupID:           fg.ID,
			Text:              text,
			File:              file,
			Tags:              msgTags,
			ForwardedFrom:     &primary.ID,
			ForwardedToGroups: forwardIDs,
			DeliveredTo:       []string{},
			SeenBy:            []string{},
			Status:            models.StatusSent,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := p.messages.Create(ctx, copyMsg); err != nil {
			logger.Error("forward_persist_failed", "message_id", primary.ID, "group_id", fg.ID, "error", err)
			continue
		}
		metrics.MessagesPersisted.WithLabelValues("forward").Inc()
		p.broadcastNew(ctx, copyMsg, group.Name)
		delivered = append(delivered, fg)
	}

	body := notificationBody(sender, text)
	p.notifier.Notify(ctx, group.Recipients(sender.ID), notify.Template{
		Type:       models.NotificationMessage,
		Title:      "New message in " + group.Name,
		Body:       body,
		GroupID:    group.ID,
		FromUserID: sender.ID,
	})
	for i := range delivered {
		fg := &delivered[i]
		p.notifier.Notify(ctx, fg.Recipients(sender.ID), notify.Template{
			Type:       models.NotificationForwarded,
			Title:      "Forwarded from " + group.Name,
			Body:       body,
			GroupID:    fg.ID,
			FromUserID: sender.ID,
		})
	}

	logger.Info("message_sent", "message_id", primary.ID, "group_id", group.ID, "forwards", len(delivered))
	return primary, nil
}

// resolveForwards returns the groups a send fans out to, without the primary group
func (p *Pipeline) resolveForwards(ctx context.Context, primaryID string, targets, msgTags []string) ([]models.Group, error) {
	var (
		groups []models.Group
		err    error
	)
	switch {
	case len(targets) > 0:
		groups, err = p.groups.FindByIDs(ctx, dedupe(targets))
	case len(msgTags) > 0:
		groups, err = p.groups.FindByRegions(ctx, msgTags)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.Group, 0, len(groups))
	seen := map[string]struct{}{primaryID: {}}
	for _, g := range groups {
		if _, ok := seen[g.ID]; ok {
			continue
		}
		seen[g.ID] = struct{}{}
		out = append(out, g)
	}
	return out, nil
}

// Edit replaces the text of a message. Forwarded copies of an original are
// updated in the same way but are not broadcast individually.
func (p *Pipeline) Edit(ctx context.Context, actor *models.User, messageID, text string) (*models.Message, error) {
	msg, err := p.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted.IsDeleted {
		return nil, apperror.ErrMessageDeleted
	}
	if msg.SenderID != actor.ID {
		return nil, apperror.ErrNotSender
	}
	now := p.now()
	if now.Sub(msg.CreatedAt) > EditWindow {
		return nil, apperror.ErrEditWindowExpired
	}
	edited := *msg
	edited.Text = strings.TrimSpace(text)
	if !edited.HasContent() {
		return nil, apperror.ErrEmptyMessage
	}

	msg = &edited
	msg.Tags = tags.Extract(msg.Text)
	msg.Edited = models.EditState{IsEdited: true, EditedAt: &now}
	msg.UpdatedAt = now
	if err := p.messages.UpdateEdit(ctx, msg); err != nil {
		return nil, err
	}

	if !msg.IsForwardedCopy() {
		if n, err := p.messages.CascadeEdit(ctx, msg.ID, msg.Text, msg.Tags, now); err != nil {
			logger.Error("edit_cascade_failed", "message_id", msg.ID, "error", err)
		} else if n > 0 {
			logger.Debug("edit_cascaded", "message_id", msg.ID, "copies", n)
		}
	}

	p.emitter.EmitToRoom(ws.GroupRoom(msg.GroupID), ws.EventMessageEdited, p.hydrate(ctx, msg, ""), "")
	return msg, nil
}

// Delete tombstones a message and its forwarded copies
func (p *Pipeline) Delete(ctx context.Context, actor *models.User, messageID string) (*models.Message, error) {
	msg, err := p.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted.IsDeleted {
		return nil, apperror.ErrMessageDeleted
	}
	if msg.SenderID != actor.ID && !actor.CanModerate() {
		return nil, apperror.ErrCannotDelete
	}

	now := p.now()
	deletedBy := actor.ID
	msg.Deleted = models.DeleteState{IsDeleted: true, DeletedBy: &deletedBy, DeletedAt: &now}
	msg.UpdatedAt = now
	if err := p.messages.UpdateDelete(ctx, msg); err != nil {
		return nil, err
	}

	if !msg.IsForwardedCopy() {
		if n, err := p.messages.CascadeDelete(ctx, msg.ID, deletedBy, now); err != nil {
			logger.Error("delete_cascade_failed", "message_id", msg.ID, "error", err)
		} else if n > 0 {
			logger.Debug("delete_cascaded", "message_id", msg.ID, "copies", n)
		}
	}

	p.emitter.EmitToRoom(ws.GroupRoom(msg.GroupID), ws.EventMessageDeleted, ws.DeletedPayload{
		MessageID: msg.ID,
		DeletedBy: deletedBy,
	}, "")
	logger.Info("message_deleted", "message_id", msg.ID, "deleted_by", deletedBy)
	return msg, nil
}

// Forward copies an existing message into each destination group
func (p *Pipeline) Forward(ctx context.Context, actor *models.User, messageID string, groupIDs []string) ([]models.Message, error) {
	groupIDs = dedupe(groupIDs)
	if len(groupIDs) == 0 {
		return nil, apperror.ErrNoForwardGroups
	}

	src, err := p.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if src.Deleted.IsDeleted {
		return nil, apperror.ErrMessageDeleted
	}

	dests, err := p.groups.FindByIDs(ctx, groupIDs)
	if err != nil {
		return nil, err
	}
	if len(dests) == 0 {
		return nil, apperror.ErrGroupNotFound
	}

	var originName string
	if origin, err := p.groups.FindByID(ctx, src.GroupID); err == nil {
		originName = origin.Name
	}

	var (
		created []models.Message
		lastErr error
	)
	for _, g := range dests {
		now := p.now()
		fwd := &models.Message{
			ID:            uuid.NewString(),
			SenderID:      actor.ID,
			GroupID:       g.ID,
			Text:          ForwardPrefix + src.Text,
			File:          src.File,
			Tags:          append([]string{}, src.Tags...),
			ForwardedFrom: &src.ID,
			DeliveredTo:   []string{},
			SeenBy:        []string{},
			Status:        models.StatusSent,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := p.messages.Create(ctx, fwd); err != nil {
			logger.Error("forward_persist_failed", "message_id", src.ID, "group_id", g.ID, "error", err)
			lastErr = err
			continue
		}
		metrics.MessagesPersisted.WithLabelValues("copy").Inc()
		p.broadcastNew(ctx, fwd, originName)
		created = append(created, *fwd)
	}

	if len(created) == 0 {
		return nil, lastErr
	}
	return created, nil
}

// Acknowledge adds the actor to the delivered or seen set of each message
func (p *Pipeline) Acknowledge(ctx context.Context, actor *models.User, messageIDs []string, kind repository.ReceiptKind) (int64, error) {
	messageIDs = dedupe(messageIDs)
	if len(messageIDs) == 0 {
		return 0, apperror.ErrNoMessageIDs
	}
	return p.messages.AddReceipt(ctx, messageIDs, actor.ID, kind)
}

// ListGroupMessages returns a page of group history, newest first. Non-admin
// viewers only see messages created after they joined the group.
func (p *Pipeline) ListGroupMessages(ctx context.Context, viewer *models.User, groupID string, before time.Time, limit int) ([]models.MessageView, error) {
	group, err := p.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !canPost(viewer, group) {
		return nil, apperror.ErrNotGroupMember
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if before.IsZero() {
		before = p.now().Add(time.Nanosecond)
	}
	var since time.Time
	if !viewer.IsAdmin() {
		since = viewer.GroupJoinedAt[group.ID]
	}

	msgs, err := p.messages.ListByGroup(ctx, group.ID, since, before, limit)
	if err != nil {
		return nil, err
	}
	views := make([]models.MessageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, p.hydrate(ctx, &msgs[i], "").Tombstoned())
	}
	return views, nil
}

func (p *Pipeline) broadcastNew(ctx context.Context, msg *models.Message, originalGroup string) {
	p.emitter.EmitToRoom(ws.GroupRoom(msg.GroupID), ws.EventMessageNew, p.hydrate(ctx, msg, originalGroup), "")
}

// hydrate falls back to the bare message when the read model cannot be built
func (p *Pipeline) hydrate(ctx context.Context, msg *models.Message, originalGroup string) models.MessageView {
	view, err := p.messages.Hydrate(ctx, msg)
	if err != nil {
		logger.Warn("message_hydrate_failed", "message_id", msg.ID, "error", err)
		view = &models.MessageView{Message: *msg}
	}
	view.IsForwarded = msg.IsForwardedCopy()
	view.OriginalGroup = originalGroup
	return *view
}

func canPost(user *models.User, group *models.Group) bool {
	return user.IsAdmin() || user.DefaultGroup() == group.ID || group.HasParticipant(user.ID)
}

func notificationBody(sender *models.User, text string) string {
	if text == "" {
		return sender.Username + " sent a file"
	}
	return sender.Username + ": " + text
}

func normalizeFile(file *string) *string {
	if file == nil || strings.TrimSpace(*file) == "" {
		return nil
	}
	return file
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
