package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"recruit-backend/internal/audit"
	"recruit-backend/internal/eligibility"
	"recruit-backend/internal/notifications"
	"recruit-backend/internal/shared/metrics"
)

const (
	// Sliding-window cap: a sender may have at most rateLimitMaxMessages
	// non-deleted messages in a conversation within the trailing window.
	rateLimitWindow      = time.Hour
	rateLimitMaxMessages = 30

	minRatingScore = 1
	maxRatingScore = 5
)

// Service is the messaging gate. Application-scoped actions consult the
// eligibility gate before any write; the gate is the only view of pipeline
// state this package has.
type Service struct {
	Repo   Repo
	Gate   eligibility.Gate
	Notify *notifications.Notifier
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateConversation creates a thread, enforcing the eligibility gate for
// application-scoped threads. Creation is idempotent: an active
// conversation in the organization with the same application scope and the
// identical active-participant set is returned unchanged.
func (s *Service) CreateConversation(ctx context.Context, organizationID, subject string, participantIDs []string, applicationID *string, creatorID string) (Conversation, error) {
	if strings.TrimSpace(organizationID) == "" || strings.TrimSpace(creatorID) == "" {
		return Conversation{}, ErrInvalidInput
	}

	members := dedupe(append(append([]string{}, participantIDs...), creatorID))
	if len(members) < 2 {
		return Conversation{}, ErrNotEnoughParticipants
	}

	if applicationID != nil {
		eligible, err := s.Gate.IsApplicationInScreeningOrLater(ctx, *applicationID, organizationID)
		if err != nil {
			return Conversation{}, err
		}
		if !eligible {
			return Conversation{}, ErrIneligibleApplication
		}
		for _, member := range members {
			involved, err := s.Gate.IsUserInApplication(ctx, *applicationID, organizationID, member)
			if err != nil {
				return Conversation{}, err
			}
			if !involved {
				return Conversation{}, fmt.Errorf("%w: %s", ErrParticipantNotInvolved, member)
			}
		}

		existing, err := s.findMatchingConversation(ctx, organizationID, *applicationID, members)
		if err != nil {
			return Conversation{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}

	now := s.now()
	conv := Conversation{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		ApplicationID:  applicationID,
		Subject:        subject,
		IsActive:       true,
		CreatedByID:    creatorID,
		CreatedAt:      now,
	}
	participants := make([]Participant, 0, len(members))
	for _, member := range members {
		participants = append(participants, Participant{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			UserID:         member,
			JoinedAt:       now,
		})
	}
	event := audit.Event{
		OrganizationID: organizationID,
		ActorID:        creatorID,
		Action:         audit.ActionConversationCreated,
		EntityType:     audit.EntityConversation,
		EntityID:       conv.ID,
		Details:        fmt.Sprintf("participants=%d", len(members)),
		CreatedAt:      now,
	}
	if err := s.Repo.CreateConversation(ctx, conv, participants, event); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// findMatchingConversation returns an active conversation whose active
// participant set equals members, or nil.
func (s *Service) findMatchingConversation(ctx context.Context, organizationID, applicationID string, members []string) (*Conversation, error) {
	candidates, err := s.Repo.ListActiveByApplication(ctx, organizationID, applicationID)
	if err != nil {
		return nil, err
	}
	want := append([]string{}, members...)
	sort.Strings(want)
	for i := range candidates {
		active, err := s.Repo.ActiveParticipantIDs(ctx, candidates[i].ID)
		if err != nil {
			return nil, err
		}
		sort.Strings(active)
		if equalSets(want, active) {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// SendMessage persists a message from an active participant. For
// application-scoped conversations eligibility is re-checked on every send,
// so messaging stops the moment an application regresses to a side exit.
func (s *Service) SendMessage(ctx context.Context, conversationID, content, senderID string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrInvalidInput
	}
	started := metrics.NowMillis()

	conv, err := s.Repo.GetConversation(ctx, conversationID)
	if err != nil {
		return Message{}, err
	}
	if !conv.IsActive {
		return Message{}, ErrNotFound
	}
	if _, err := s.Repo.GetActiveParticipant(ctx, conversationID, senderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Message{}, ErrUnauthorized
		}
		return Message{}, err
	}
	if conv.ApplicationID != nil {
		eligible, err := s.Gate.IsApplicationInScreeningOrLater(ctx, *conv.ApplicationID, conv.OrganizationID)
		if err != nil {
			return Message{}, err
		}
		if !eligible {
			return Message{}, ErrIneligibleApplication
		}
	}

	now := s.now()
	// Count-then-insert is racy under concurrent sends from the same user;
	// the window may overshoot by one. Kept as a soft limit on purpose.
	recent, err := s.Repo.CountRecentBySender(ctx, conversationID, senderID, now.Add(-rateLimitWindow))
	if err != nil {
		return Message{}, err
	}
	if recent >= rateLimitMaxMessages {
		metrics.IncMessageRateLimited()
		return Message{}, ErrRateLimited
	}

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		SentAt:         now,
	}
	event := audit.Event{
		OrganizationID: conv.OrganizationID,
		ActorID:        senderID,
		Action:         audit.ActionMessageSent,
		EntityType:     audit.EntityMessage,
		EntityID:       msg.ID,
		Details:        fmt.Sprintf("conversation=%s", conversationID),
		CreatedAt:      now,
	}
	if err := s.Repo.CreateMessage(ctx, msg, event); err != nil {
		return Message{}, err
	}

	metrics.IncMessageSent()
	metrics.ObserveSendDurationMs(metrics.NowMillis() - started)
	s.notifyRecipients(ctx, conv, msg)
	return msg, nil
}

func (s *Service) notifyRecipients(ctx context.Context, conv Conversation, msg Message) {
	if s.Notify == nil {
		return
	}
	active, err := s.Repo.ActiveParticipantIDs(ctx, conv.ID)
	if err != nil {
		return
	}
	for _, userID := range active {
		if userID != msg.SenderID {
			s.Notify.MessageSent(ctx, msg.ID, conv.OrganizationID, userID)
		}
	}
}

// AddParticipant adds one user. For application-scoped conversations the
// user must have standing on the application; the single-add path fails
// strictly, unlike the bulk path.
func (s *Service) AddParticipant(ctx context.Context, conversationID, callerID, userID string) error {
	conv, _, err := s.activeCaller(ctx, conversationID, callerID)
	if err != nil {
		return err
	}

	if _, err := s.Repo.GetActiveParticipant(ctx, conversationID, userID); err == nil {
		return nil // already a member
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if conv.ApplicationID != nil {
		involved, err := s.Gate.IsUserInApplication(ctx, *conv.ApplicationID, conv.OrganizationID, userID)
		if err != nil {
			return err
		}
		if !involved {
			return ErrParticipantNotInvolved
		}
	}
	return s.addParticipant(ctx, conv, callerID, userID)
}

// AddParticipants adds users best-effort: entries without standing on the
// application, or already present, are skipped silently so the rest of the
// batch still lands. Returns the user IDs actually added.
func (s *Service) AddParticipants(ctx context.Context, conversationID, callerID string, userIDs []string) ([]string, error) {
	conv, _, err := s.activeCaller(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, userID := range dedupe(userIDs) {
		if _, err := s.Repo.GetActiveParticipant(ctx, conversationID, userID); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return added, err
		}
		if conv.ApplicationID != nil {
			involved, err := s.Gate.IsUserInApplication(ctx, *conv.ApplicationID, conv.OrganizationID, userID)
			if err != nil {
				return added, err
			}
			if !involved {
				continue
			}
		}
		if err := s.addParticipant(ctx, conv, callerID, userID); err != nil {
			return added, err
		}
		added = append(added, userID)
	}
	return added, nil
}

func (s *Service) addParticipant(ctx context.Context, conv Conversation, callerID, userID string) error {
	now := s.now()
	p := Participant{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		UserID:         userID,
		JoinedAt:       now,
	}
	event := audit.Event{
		OrganizationID: conv.OrganizationID,
		ActorID:        callerID,
		Action:         audit.ActionParticipantAdded,
		EntityType:     audit.EntityConversation,
		EntityID:       conv.ID,
		Details:        fmt.Sprintf("user=%s", userID),
		CreatedAt:      now,
	}
	return s.Repo.AddParticipant(ctx, p, event)
}

// RemoveParticipant soft-flags a membership as left. Only the target user
// themselves or the conversation's creator may remove a participant.
func (s *Service) RemoveParticipant(ctx context.Context, conversationID, callerID, targetID string) error {
	conv, err := s.Repo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if callerID != targetID && callerID != conv.CreatedByID {
		return ErrUnauthorized
	}

	now := s.now()
	event := audit.Event{
		OrganizationID: conv.OrganizationID,
		ActorID:        callerID,
		Action:         audit.ActionParticipantRemoved,
		EntityType:     audit.EntityConversation,
		EntityID:       conv.ID,
		Details:        fmt.Sprintf("user=%s", targetID),
		CreatedAt:      now,
	}
	return s.Repo.MarkParticipantLeft(ctx, conversationID, targetID, now, event)
}

// RateConversation records one rating per (conversation, user). A
// conversation with no real exchange cannot be rated.
func (s *Service) RateConversation(ctx context.Context, conversationID, userID string, score int, comment string) (Rating, error) {
	if score < minRatingScore || score > maxRatingScore {
		return Rating{}, ErrInvalidInput
	}
	conv, _, err := s.activeCaller(ctx, conversationID, userID)
	if err != nil {
		return Rating{}, err
	}

	count, err := s.Repo.CountMessages(ctx, conversationID)
	if err != nil {
		return Rating{}, err
	}
	if count == 0 {
		return Rating{}, ErrNoMessages
	}

	now := s.now()
	rating := Rating{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Score:          score,
		Comment:        comment,
		CreatedAt:      now,
	}
	event := audit.Event{
		OrganizationID: conv.OrganizationID,
		ActorID:        userID,
		Action:         audit.ActionConversationRated,
		EntityType:     audit.EntityConversation,
		EntityID:       conversationID,
		Details:        fmt.Sprintf("score=%d", score),
		CreatedAt:      now,
	}
	if err := s.Repo.CreateRating(ctx, rating, event); err != nil {
		return Rating{}, err
	}
	return rating, nil
}

// UnreadCount returns how many messages the user has not read across their
// active conversations in the organization.
func (s *Service) UnreadCount(ctx context.Context, organizationID, userID string) (int, error) {
	return s.Repo.UnreadCount(ctx, organizationID, userID)
}

// MarkRead stamps the caller's last-read time on a conversation.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID string) error {
	if _, _, err := s.activeCaller(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.Repo.UpdateLastRead(ctx, conversationID, userID, s.now())
}

// ArchiveConversation soft-archives a conversation. Any active participant
// may archive.
func (s *Service) ArchiveConversation(ctx context.Context, conversationID, callerID string) error {
	conv, _, err := s.activeCaller(ctx, conversationID, callerID)
	if err != nil {
		return err
	}

	now := s.now()
	event := audit.Event{
		OrganizationID: conv.OrganizationID,
		ActorID:        callerID,
		Action:         audit.ActionConversationArchived,
		EntityType:     audit.EntityConversation,
		EntityID:       conversationID,
		CreatedAt:      now,
	}
	return s.Repo.ArchiveConversation(ctx, conversationID, callerID, now, event)
}

// ListMessages returns non-deleted messages for an active participant.
func (s *Service) ListMessages(ctx context.Context, conversationID, callerID string, limit, offset int) ([]Message, error) {
	if _, _, err := s.activeCaller(ctx, conversationID, callerID); err != nil {
		return nil, err
	}
	return s.Repo.ListMessages(ctx, conversationID, limit, offset)
}

// EditMessage replaces a message's content. Only the sender may edit, and
// only while the message is not deleted.
func (s *Service) EditMessage(ctx context.Context, messageID, callerID, content string) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrInvalidInput
	}
	msg, err := s.Repo.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if msg.IsDeleted {
		return Message{}, ErrNotFound
	}
	if msg.SenderID != callerID {
		return Message{}, ErrUnauthorized
	}
	conv, err := s.Repo.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return Message{}, err
	}

	now := s.now()
	msg.Content = content
	msg.EditedAt = &now
	event := audit.Event{
		OrganizationID: conv.OrganizationID,
		ActorID:        callerID,
		Action:         audit.ActionMessageEdited,
		EntityType:     audit.EntityMessage,
		EntityID:       msg.ID,
		CreatedAt:      now,
	}
	if err := s.Repo.UpdateMessage(ctx, msg, event); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DeleteMessage soft-deletes a message with actor attribution. The sender
// or the conversation creator may delete.
func (s *Service) DeleteMessage(ctx context.Context, messageID, callerID string) error {
	msg, err := s.Repo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return nil
	}
	conv, err := s.Repo.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID && conv.CreatedByID != callerID {
		return ErrUnauthorized
	}

	now := s.now()
	msg.IsDeleted = true
	msg.DeletedAt = &now
	msg.DeletedByID = callerID
	event := audit.Event{
		OrganizationID: conv.OrganizationID,
		ActorID:        callerID,
		Action:         audit.ActionMessageDeleted,
		EntityType:     audit.EntityMessage,
		EntityID:       msg.ID,
		CreatedAt:      now,
	}
	return s.Repo.UpdateMessage(ctx, msg, event)
}

// activeCaller loads the conversation and verifies the caller is an active
// participant.
func (s *Service) activeCaller(ctx context.Context, conversationID, callerID string) (Conversation, Participant, error) {
	conv, err := s.Repo.GetConversation(ctx, conversationID)
	if err != nil {
		return Conversation{}, Participant{}, err
	}
	p, err := s.Repo.GetActiveParticipant(ctx, conversationID, callerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Conversation{}, Participant{}, ErrUnauthorized
		}
		return Conversation{}, Participant{}, err
	}
	return conv, p, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
