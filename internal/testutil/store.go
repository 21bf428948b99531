// Package testutil provides in-memory fakes of the persistence, cache and
// broadcast collaborators for tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ngabarin/realtime/internal/apperror"
	"ngabarin/realtime/internal/models"
	"ngabarin/realtime/internal/repository"
)

// ErrInjected is returned by operations configured to fail
var ErrInjected = errors.New("injected failure")

// Store is an in-memory implementation of every repository interface
type Store struct {
	mu            sync.Mutex
	users         map[string]*models.User
	groups        map[string]*models.Group
	groupOrder    []string
	messages      map[string]*models.Message
	messageOrder  []string
	notifications map[string][]models.Notification

	// Fail maps an operation name ("Message.Create", "Notification.Append", ...) to the
	// number of upcoming calls that fail. -1 fails every call.
	Fail map[string]int
	// FailGroup makes Message.Create fail for records targeting the given group
	FailGroup string

	Calls map[string]int
}

var _ repository.UserRepositoryInterface = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:         make(map[string]*models.User),
		groups:        make(map[string]*models.Group),
		messages:      make(map[string]*models.Message),
		notifications: make(map[string][]models.Notification),
		Fail:          make(map[string]int),
		Calls:         make(map[string]int),
	}
}

// must be called with s.mu held
func (s *Store) check(op string) error {
	s.Calls[op]++
	n, ok := s.Fail[op]
	if !ok || n == 0 {
		return nil
	}
	if n > 0 {
		s.Fail[op] = n - 1
	}
	return apperror.Dependency("injected", ErrInjected)
}

// AddUser seeds a user
func (s *Store) AddUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.users[u.ID] = &cp
	return &cp
}

// DeleteUser removes a user, simulating account deletion
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// AddGroup seeds a group
func (s *Store) AddGroup(g models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := g
	if _, ok := s.groups[g.ID]; !ok {
		s.groupOrder = append(s.groupOrder, g.ID)
	}
	s.groups[g.ID] = &cp
}

// PutMessage seeds a message as-is
func (s *Store) PutMessage(m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := m
	if _, ok := s.messages[m.ID]; !ok {
		s.messageOrder = append(s.messageOrder, m.ID)
	}
	s.messages[m.ID] = &cp
}

// Message returns a copy of a stored message
func (s *Store) Message(id string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return models.Message{}, false
	}
	return *m, true
}

// Messages returns copies of all stored messages in insertion order
func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, 0, len(s.messageOrder))
	for _, id := range s.messageOrder {
		if m, ok := s.messages[id]; ok {
			out = append(out, *m)
		}
	}
	return out
}

// User returns a copy of a stored user
func (s *Store) User(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return *u, true
}

// Notifications returns the durable notification list of a user
func (s *Store) Notifications(userID string) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifications[userID]...)
}

// --- users ---

func (s *Store) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("User.FindByID"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) SetPresence(_ context.Context, id string, isOnline bool, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("User.SetPresence"); err != nil {
		return err
	}
	if u, ok := s.users[id]; ok {
		u.IsOnline = isOnline
		u.LastSeen = lastSeen
	}
	return nil
}

// Groups returns the store as a GroupRepositoryInterface. The repositories
// share method names, so each one gets its own view over the same data.
func (s *Store) Groups() *GroupView { return &GroupView{s} }

// GroupView adapts Store to GroupRepositoryInterface
type GroupView struct{ s *Store }

func (g *GroupView) FindByID(_ context.Context, id string) (*models.Group, error) {
	s := g.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Group.FindByID"); err != nil {
		return nil, err
	}
	grp, ok := s.groups[id]
	if !ok {
		return nil, apperror.ErrGroupNotFound
	}
	cp := *grp
	return &cp, nil
}

func (g *GroupView) FindByIDs(_ context.Context, ids []string) ([]models.Group, error) {
	s := g.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Group.FindByIDs"); err != nil {
		return nil, err
	}
	out := []models.Group{}
	for _, id := range ids {
		if grp, ok := s.groups[id]; ok {
			out = append(out, *grp)
		}
	}
	return out, nil
}

func (g *GroupView) FindByRegions(_ context.Context, regions []string) ([]models.Group, error) {
	s := g.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Group.FindByRegions"); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		want[r] = struct{}{}
	}
	out := []models.Group{}
	for _, id := range s.groupOrder {
		grp := s.groups[id]
		if _, ok := want[grp.Region]; ok {
			out = append(out, *grp)
		}
	}
	return out, nil
}

var _ repository.GroupRepositoryInterface = (*GroupView)(nil)

// MessageRepo returns the store as a MessageRepositoryInterface
func (s *Store) MessageRepo() *MessageView { return &MessageView{s} }

// MessageView adapts Store to MessageRepositoryInterface
type MessageView struct{ s *Store }

var _ repository.MessageRepositoryInterface = (*MessageView)(nil)

func (v *MessageView) Create(_ context.Context, m *models.Message) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.Create"); err != nil {
		return err
	}
	if s.FailGroup != "" && m.GroupID == s.FailGroup {
		return apperror.Dependency("injected", ErrInjected)
	}
	cp := *m
	s.messages[m.ID] = &cp
	s.messageOrder = append(s.messageOrder, m.ID)
	return nil
}

func (v *MessageView) FindByID(_ context.Context, id string) (*models.Message, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.FindByID"); err != nil {
		return nil, err
	}
	m, ok := s.messages[id]
	if !ok {
		return nil, apperror.ErrMessageNotFound
	}
	cp := *m
	return &cp, nil
}

func (v *MessageView) UpdateEdit(_ context.Context, m *models.Message) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.UpdateEdit"); err != nil {
		return err
	}
	stored, ok := s.messages[m.ID]
	if !ok {
		return apperror.ErrMessageNotFound
	}
	stored.Text = m.Text
	stored.Tags = append([]string(nil), m.Tags...)
	stored.Edited = m.Edited
	stored.UpdatedAt = *m.Edited.EditedAt
	return nil
}

func (v *MessageView) CascadeEdit(_ context.Context, originalID, text string, tags []string, editedAt time.Time) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.CascadeEdit"); err != nil {
		return 0, err
	}
	var n int64
	for _, m := range s.messages {
		if m.ForwardedFrom != nil && *m.ForwardedFrom == originalID {
			at := editedAt
			m.Text = text
			m.Tags = append([]string(nil), tags...)
			m.Edited = models.EditState{IsEdited: true, EditedAt: &at}
			m.UpdatedAt = editedAt
			n++
		}
	}
	return n, nil
}

func (v *MessageView) UpdateDelete(_ context.Context, m *models.Message) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.UpdateDelete"); err != nil {
		return err
	}
	stored, ok := s.messages[m.ID]
	if !ok {
		return apperror.ErrMessageNotFound
	}
	stored.Deleted = m.Deleted
	stored.UpdatedAt = *m.Deleted.DeletedAt
	return nil
}

func (v *MessageView) CascadeDelete(_ context.Context, originalID, deletedBy string, deletedAt time.Time) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.CascadeDelete"); err != nil {
		return 0, err
	}
	var n int64
	for _, m := range s.messages {
		if m.ForwardedFrom != nil && *m.ForwardedFrom == originalID {
			by, at := deletedBy, deletedAt
			m.Deleted = models.DeleteState{IsDeleted: true, DeletedBy: &by, DeletedAt: &at}
			m.UpdatedAt = deletedAt
			n++
		}
	}
	return n, nil
}

func (v *MessageView) AddReceipt(_ context.Context, ids []string, userID string, kind repository.ReceiptKind) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.AddReceipt"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		m, ok := s.messages[id]
		if !ok {
			continue
		}
		if kind == repository.ReceiptSeen {
			if contains(m.SeenBy, userID) {
				continue
			}
			m.SeenBy = append(m.SeenBy, userID)
			m.Status = models.StatusSeen
		} else {
			if contains(m.DeliveredTo, userID) {
				continue
			}
			m.DeliveredTo = append(m.DeliveredTo, userID)
			if m.Status == models.StatusSent {
				m.Status = models.StatusDelivered
			}
		}
		n++
	}
	return n, nil
}

func (v *MessageView) ListByGroup(_ context.Context, groupID string, since, before time.Time, limit int) ([]models.Message, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.ListByGroup"); err != nil {
		return nil, err
	}
	out := []models.Message{}
	for _, m := range s.messages {
		if m.GroupID != groupID || m.CreatedAt.Before(since) || !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *MessageView) PurgeDeletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.PurgeDeletedBefore"); err != nil {
		return 0, err
	}
	var n int64
	for id, m := range s.messages {
		if m.Deleted.IsDeleted && m.Deleted.DeletedAt != nil && m.Deleted.DeletedAt.Before(cutoff) {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

func (v *MessageView) Hydrate(_ context.Context, m *models.Message) (*models.MessageView, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Message.Hydrate"); err != nil {
		return nil, err
	}
	view := &models.MessageView{Message: *m}
	if u, ok := s.users[m.SenderID]; ok {
		sum := u.ToSummary()
		view.Sender = &sum
	}
	if g, ok := s.groups[m.GroupID]; ok {
		sum := g.ToSummary()
		view.Group = &sum
	}
	return view, nil
}

// NotificationRepo returns the store as a NotificationRepositoryInterface
func (s *Store) NotificationRepo() *NotificationView { return &NotificationView{s} }

// NotificationView adapts Store to NotificationRepositoryInterface
type NotificationView struct{ s *Store }

var _ repository.NotificationRepositoryInterface = (*NotificationView)(nil)

func (v *NotificationView) Append(_ context.Context, userID string, n models.Notification) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Notification.Append"); err != nil {
		return err
	}
	if _, ok := s.users[userID]; !ok {
		return apperror.ErrUserNotFound
	}
	s.notifications[userID] = append(s.notifications[userID], n)
	return nil
}

func (v *NotificationView) List(_ context.Context, userID string) ([]models.Notification, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Notification.List"); err != nil {
		return nil, err
	}
	return append([]models.Notification{}, s.notifications[userID]...), nil
}

func (v *NotificationView) Clear(_ context.Context, userID string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("Notification.Clear"); err != nil {
		return err
	}
	delete(s.notifications, userID)
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
