package messaging

import (
	"context"
	"sort"
	"sync"
	"time"

	"recruit-backend/internal/audit"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu            sync.RWMutex
	conversations map[string]Conversation
	participants  map[string][]Participant // conversationId -> rows
	messages      map[string][]Message     // conversationId -> rows
	ratings       map[string]map[string]Rating
	auditLog      *audit.MemoryLog
}

// NewMemoryRepo constructs a MemoryRepo that appends audit events to log.
func NewMemoryRepo(log *audit.MemoryLog) *MemoryRepo {
	if log == nil {
		log = audit.NewMemoryLog()
	}
	return &MemoryRepo{
		conversations: make(map[string]Conversation),
		participants:  make(map[string][]Participant),
		messages:      make(map[string][]Message),
		ratings:       make(map[string]map[string]Rating),
		auditLog:      log,
	}
}

// CreateConversation stores the conversation and its participants.
func (r *MemoryRepo) CreateConversation(ctx context.Context, conv Conversation, participants []Participant, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[conv.ID] = conv
	r.participants[conv.ID] = append(r.participants[conv.ID], participants...)
	r.auditLog.Append(event)
	return nil
}

// GetConversation returns a conversation by ID.
func (r *MemoryRepo) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	if err := ctx.Err(); err != nil {
		return Conversation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return conv, nil
}

// ListActiveByApplication returns active conversations scoped to the
// application.
func (r *MemoryRepo) ListActiveByApplication(ctx context.Context, organizationID, applicationID string) ([]Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Conversation
	for _, conv := range r.conversations {
		if conv.OrganizationID != organizationID || !conv.IsActive {
			continue
		}
		if conv.ApplicationID == nil || *conv.ApplicationID != applicationID {
			continue
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ActiveParticipantIDs returns sorted user IDs of non-left participants.
func (r *MemoryRepo) ActiveParticipantIDs(ctx context.Context, conversationID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, p := range r.participants[conversationID] {
		if !p.HasLeft {
			out = append(out, p.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetActiveParticipant returns the non-left membership row for a user.
func (r *MemoryRepo) GetActiveParticipant(ctx context.Context, conversationID, userID string) (Participant, error) {
	if err := ctx.Err(); err != nil {
		return Participant{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.participants[conversationID] {
		if p.UserID == userID && !p.HasLeft {
			return p, nil
		}
	}
	return Participant{}, ErrNotFound
}

// AddParticipant appends a membership row.
func (r *MemoryRepo) AddParticipant(ctx context.Context, p Participant, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[p.ConversationID] = append(r.participants[p.ConversationID], p)
	r.auditLog.Append(event)
	return nil
}

// MarkParticipantLeft soft-flags a membership as left.
func (r *MemoryRepo) MarkParticipantLeft(ctx context.Context, conversationID, userID string, at time.Time, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.participants[conversationID]
	for i := range rows {
		if rows[i].UserID == userID && !rows[i].HasLeft {
			rows[i].HasLeft = true
			leftAt := at
			rows[i].LeftAt = &leftAt
			r.participants[conversationID] = rows
			r.auditLog.Append(event)
			return nil
		}
	}
	return ErrNotFound
}

// UpdateLastRead stamps the participant's last-read time.
func (r *MemoryRepo) UpdateLastRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.participants[conversationID]
	for i := range rows {
		if rows[i].UserID == userID && !rows[i].HasLeft {
			readAt := at
			rows[i].LastReadAt = &readAt
			r.participants[conversationID] = rows
			return nil
		}
	}
	return nil
}

// CreateMessage appends a message.
func (r *MemoryRepo) CreateMessage(ctx context.Context, m Message, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)
	r.auditLog.Append(event)
	return nil
}

// GetMessage returns a message by ID.
func (r *MemoryRepo) GetMessage(ctx context.Context, messageID string) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rows := range r.messages {
		for _, m := range rows {
			if m.ID == messageID {
				return m, nil
			}
		}
	}
	return Message{}, ErrNotFound
}

// UpdateMessage replaces a stored message.
func (r *MemoryRepo) UpdateMessage(ctx context.Context, m Message, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.messages[m.ConversationID]
	for i := range rows {
		if rows[i].ID == m.ID {
			rows[i] = m
			r.messages[m.ConversationID] = rows
			r.auditLog.Append(event)
			return nil
		}
	}
	return ErrNotFound
}

// ListMessages returns non-deleted messages, oldest first.
func (r *MemoryRepo) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Message
	for _, m := range r.messages[conversationID] {
		if !m.IsDeleted {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	if offset >= len(out) {
		return []Message{}, nil
	}
	end := len(out)
	if offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// CountRecentBySender counts a sender's non-deleted messages since a time.
func (r *MemoryRepo) CountRecentBySender(ctx context.Context, conversationID, senderID string, since time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, m := range r.messages[conversationID] {
		if m.SenderID == senderID && !m.IsDeleted && !m.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// CountMessages counts non-deleted messages in a conversation.
func (r *MemoryRepo) CountMessages(ctx context.Context, conversationID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, m := range r.messages[conversationID] {
		if !m.IsDeleted {
			count++
		}
	}
	return count, nil
}

// CreateRating stores a rating unless the user already rated.
func (r *MemoryRepo) CreateRating(ctx context.Context, rating Rating, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byUser, ok := r.ratings[rating.ConversationID]
	if !ok {
		byUser = make(map[string]Rating)
		r.ratings[rating.ConversationID] = byUser
	}
	if _, exists := byUser[rating.UserID]; exists {
		return ErrAlreadyRated
	}
	byUser[rating.UserID] = rating
	r.auditLog.Append(event)
	return nil
}

// UnreadCount counts messages sent after the later of last read and join.
func (r *MemoryRepo) UnreadCount(ctx context.Context, organizationID, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for convID, conv := range r.conversations {
		if conv.OrganizationID != organizationID {
			continue
		}
		var membership *Participant
		for i := range r.participants[convID] {
			p := r.participants[convID][i]
			if p.UserID == userID && !p.HasLeft {
				membership = &p
				break
			}
		}
		if membership == nil {
			continue
		}
		cutoff := membership.JoinedAt
		if membership.LastReadAt != nil && membership.LastReadAt.After(cutoff) {
			cutoff = *membership.LastReadAt
		}
		for _, m := range r.messages[convID] {
			if !m.IsDeleted && m.SentAt.After(cutoff) {
				count++
			}
		}
	}
	return count, nil
}

// ArchiveConversation soft-archives a conversation.
func (r *MemoryRepo) ArchiveConversation(ctx context.Context, conversationID, archivedBy string, at time.Time, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[conversationID]
	if !ok || !conv.IsActive {
		return ErrNotFound
	}
	conv.IsActive = false
	archivedAt := at
	conv.ArchivedAt = &archivedAt
	conv.ArchivedByID = archivedBy
	r.conversations[conversationID] = conv
	r.auditLog.Append(event)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
