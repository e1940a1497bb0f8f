package messaging

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"recruit-backend/internal/audit"
)

// fakeGate controls eligibility per application and per (application, user).
type fakeGate struct {
	eligible map[string]bool
	involved map[string]bool
}

func (g *fakeGate) IsApplicationInScreeningOrLater(ctx context.Context, applicationID, organizationID string) (bool, error) {
	_ = ctx
	_ = organizationID
	return g.eligible[applicationID], nil
}

func (g *fakeGate) IsUserInApplication(ctx context.Context, applicationID, organizationID, userID string) (bool, error) {
	_ = ctx
	_ = organizationID
	return g.involved[applicationID+"|"+userID], nil
}

func setupMessaging(t *testing.T) (*Service, *fakeGate, *audit.MemoryLog) {
	t.Helper()
	log := audit.NewMemoryLog()
	gate := &fakeGate{
		eligible: make(map[string]bool),
		involved: make(map[string]bool),
	}
	svc := &Service{
		Repo: NewMemoryRepo(log),
		Gate: gate,
	}
	return svc, gate, log
}

func (g *fakeGate) allow(applicationID string, users ...string) {
	g.eligible[applicationID] = true
	for _, u := range users {
		g.involved[applicationID+"|"+u] = true
	}
}

func mustCreateConversation(t *testing.T, svc *Service, applicationID *string) Conversation {
	t.Helper()
	conv, err := svc.CreateConversation(context.Background(), "org-1", "intro", []string{"cand-1"}, applicationID, "staff-1")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return conv
}

func strPtr(s string) *string { return &s }

func TestCreateConversationRequiresTwoParticipants(t *testing.T) {
	svc, _, _ := setupMessaging(t)

	// Creator is deduped into the member set, so passing only the creator
	// leaves a single participant.
	if _, err := svc.CreateConversation(context.Background(), "org-1", "", []string{"staff-1"}, nil, "staff-1"); !errors.Is(err, ErrNotEnoughParticipants) {
		t.Fatalf("expected ErrNotEnoughParticipants, got %v", err)
	}
}

func TestCreateConversationUnscopedSkipsGate(t *testing.T) {
	svc, _, log := setupMessaging(t)

	conv := mustCreateConversation(t, svc, nil)
	if !conv.IsActive {
		t.Fatalf("expected active conversation")
	}
	if got := log.CountByAction(audit.ActionConversationCreated); got != 1 {
		t.Fatalf("expected 1 creation audit event, got %d", got)
	}
}

func TestCreateConversationGateBlocksEarlyApplication(t *testing.T) {
	svc, _, _ := setupMessaging(t)

	if _, err := svc.CreateConversation(context.Background(), "org-1", "", []string{"cand-1"}, strPtr("app-1"), "staff-1"); !errors.Is(err, ErrIneligibleApplication) {
		t.Fatalf("expected ErrIneligibleApplication, got %v", err)
	}
}

func TestCreateConversationRejectsUninvolvedParticipant(t *testing.T) {
	svc, gate, _ := setupMessaging(t)
	gate.allow("app-1", "staff-1", "cand-1")

	_, err := svc.CreateConversation(context.Background(), "org-1", "", []string{"cand-1", "stranger"}, strPtr("app-1"), "staff-1")
	if !errors.Is(err, ErrParticipantNotInvolved) {
		t.Fatalf("expected ErrParticipantNotInvolved, got %v", err)
	}
	if want := fmt.Sprintf("%s: stranger", ErrParticipantNotInvolved); err.Error() != want {
		t.Fatalf("expected offending user named, got %q", err.Error())
	}
}

func TestCreateConversationIdempotent(t *testing.T) {
	svc, gate, _ := setupMessaging(t)
	gate.allow("app-1", "staff-1", "cand-1")

	first := mustCreateConversation(t, svc, strPtr("app-1"))
	second := mustCreateConversation(t, svc, strPtr("app-1"))
	if second.ID != first.ID {
		t.Fatalf("expected existing conversation returned, got a new one")
	}

	// A different participant set gets a fresh thread.
	gate.allow("app-1", "staff-2")
	third, err := svc.CreateConversation(context.Background(), "org-1", "", []string{"cand-1", "staff-2"}, strPtr("app-1"), "staff-1")
	if err != nil {
		t.Fatalf("create with wider set: %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("different participant set should not match")
	}
}

func TestSendMessageHappyPath(t *testing.T) {
	svc, _, log := setupMessaging(t)
	conv := mustCreateConversation(t, svc, nil)

	msg, err := svc.SendMessage(context.Background(), conv.ID, "hello", "cand-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.SenderID != "cand-1" || msg.Content != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if got := log.CountByAction(audit.ActionMessageSent); got != 1 {
		t.Fatalf("expected 1 send audit event, got %d", got)
	}
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	conv := mustCreateConversation(t, svc, nil)

	if _, err := svc.SendMessage(context.Background(), conv.ID, "   ", "cand-1"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSendMessageRequiresMembership(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	conv := mustCreateConversation(t, svc, nil)

	if _, err := svc.SendMessage(context.Background(), conv.ID, "hi", "stranger"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSendMessageToArchivedConversation(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	conv := mustCreateConversation(t, svc, nil)
	if err := svc.ArchiveConversation(context.Background(), conv.ID, "staff-1"); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if _, err := svc.SendMessage(context.Background(), conv.ID, "hi", "cand-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSendMessageRechecksEligibility(t *testing.T) {
	svc, gate, _ := setupMessaging(t)
	gate.allow("app-1", "staff-1", "cand-1")
	conv := mustCreateConversation(t, svc, strPtr("app-1"))

	if _, err := svc.SendMessage(context.Background(), conv.ID, "hi", "cand-1"); err != nil {
		t.Fatalf("send while eligible: %v", err)
	}

	// Application falls out of scope, e.g. rejected.
	gate.eligible["app-1"] = false

	if _, err := svc.SendMessage(context.Background(), conv.ID, "hi again", "cand-1"); !errors.Is(err, ErrIneligibleApplication) {
		t.Fatalf("expected ErrIneligibleApplication, got %v", err)
	}
}

func TestSendMessageRateLimitWindow(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return current }
	conv := mustCreateConversation(t, svc, nil)

	for i := 0; i < rateLimitMaxMessages; i++ {
		current = current.Add(time.Second)
		if _, err := svc.SendMessage(context.Background(), conv.ID, "spam", "cand-1"); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
	}

	current = current.Add(time.Second)
	if _, err := svc.SendMessage(context.Background(), conv.ID, "one too many", "cand-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// The other side is counted separately.
	if _, err := svc.SendMessage(context.Background(), conv.ID, "still fine", "staff-1"); err != nil {
		t.Fatalf("other sender should not be limited: %v", err)
	}

	// Once the window slides past the burst, sending resumes.
	current = current.Add(rateLimitWindow + time.Minute)
	if _, err := svc.SendMessage(context.Background(), conv.ID, "fresh window", "cand-1"); err != nil {
		t.Fatalf("send after window: %v", err)
	}
}

func TestDeletedMessagesFreeRateLimitBudget(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return current }
	conv := mustCreateConversation(t, svc, nil)

	var lastID string
	for i := 0; i < rateLimitMaxMessages; i++ {
		current = current.Add(time.Second)
		msg, err := svc.SendMessage(context.Background(), conv.ID, "spam", "cand-1")
		if err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
		lastID = msg.ID
	}

	if err := svc.DeleteMessage(context.Background(), lastID, "cand-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	current = current.Add(time.Second)
	if _, err := svc.SendMessage(context.Background(), conv.ID, "room again", "cand-1"); err != nil {
		t.Fatalf("send after delete: %v", err)
	}
}

func TestAddParticipantStrictVsBulk(t *testing.T) {
	svc, gate, _ := setupMessaging(t)
	gate.allow("app-1", "staff-1", "cand-1", "staff-2")
	conv := mustCreateConversation(t, svc, strPtr("app-1"))

	// Single add of an uninvolved user fails loudly.
	if err := svc.AddParticipant(context.Background(), conv.ID, "staff-1", "stranger"); !errors.Is(err, ErrParticipantNotInvolved) {
		t.Fatalf("expected ErrParticipantNotInvolved, got %v", err)
	}

	// Bulk add skips the uninvolved user and the existing member silently.
	added, err := svc.AddParticipants(context.Background(), conv.ID, "staff-1", []string{"staff-2", "stranger", "cand-1"})
	if err != nil {
		t.Fatalf("bulk add: %v", err)
	}
	if len(added) != 1 || added[0] != "staff-2" {
		t.Fatalf("expected only staff-2 added, got %v", added)
	}
}

func TestAddParticipantExistingMemberIsNoop(t *testing.T) {
	svc, _, log := setupMessaging(t)
	conv := mustCreateConversation(t, svc, nil)

	if err := svc.AddParticipant(context.Background(), conv.ID, "staff-1", "cand-1"); err != nil {
		t.Fatalf("re-add member: %v", err)
	}
	if got := log.CountByAction(audit.ActionParticipantAdded); got != 0 {
		t.Fatalf("expected no participant audit event, got %d", got)
	}
}

func TestRemoveParticipantAuthorization(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	conv, err := svc.CreateConversation(context.Background(), "org-1", "", []string{"cand-1", "staff-2"}, nil, "staff-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A third party cannot remove someone else.
	if err := svc.RemoveParticipant(context.Background(), conv.ID, "staff-2", "cand-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	// Users remove themselves, and the creator removes anyone.
	if err := svc.RemoveParticipant(context.Background(), conv.ID, "cand-1", "cand-1"); err != nil {
		t.Fatalf("self remove: %v", err)
	}
	if err := svc.RemoveParticipant(context.Background(), conv.ID, "staff-1", "staff-2"); err != nil {
		t.Fatalf("creator remove: %v", err)
	}

	// A removed user can no longer send.
	if _, err := svc.SendMessage(context.Background(), conv.ID, "hi", "cand-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after leaving, got %v", err)
	}
}

func TestRateConversation(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	conv := mustCreateConversation(t, svc, nil)

	if _, err := svc.RateConversation(context.Background(), conv.ID, "cand-1", 0, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for score 0, got %v", err)
	}
	if _, err := svc.RateConversation(context.Background(), conv.ID, "cand-1", 6, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for score 6, got %v", err)
	}

	if _, err := svc.RateConversation(context.Background(), conv.ID, "cand-1", 4, "good chat"); !errors.Is(err, ErrNoMessages) {
		t.Fatalf("expected ErrNoMessages, got %v", err)
	}

	if _, err := svc.SendMessage(context.Background(), conv.ID, "hello", "staff-1"); err != nil {
		t.Fatalf("send: %v", err)
	}

	rating, err := svc.RateConversation(context.Background(), conv.ID, "cand-1", 4, "good chat")
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rating.Score != 4 {
		t.Fatalf("unexpected score: %d", rating.Score)
	}

	if _, err := svc.RateConversation(context.Background(), conv.ID, "cand-1", 5, "even better"); !errors.Is(err, ErrAlreadyRated) {
		t.Fatalf("expected ErrAlreadyRated, got %v", err)
	}

	// The other participant still gets their one rating.
	if _, err := svc.RateConversation(context.Background(), conv.ID, "staff-1", 5, ""); err != nil {
		t.Fatalf("second participant rate: %v", err)
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return current }
	conv := mustCreateConversation(t, svc, nil)

	for i := 0; i < 3; i++ {
		current = current.Add(time.Minute)
		if _, err := svc.SendMessage(context.Background(), conv.ID, "ping", "staff-1"); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	count, err := svc.UnreadCount(context.Background(), "org-1", "cand-1")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 unread, got %d", count)
	}

	current = current.Add(time.Minute)
	if err := svc.MarkRead(context.Background(), conv.ID, "cand-1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	count, err = svc.UnreadCount(context.Background(), "org-1", "cand-1")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread after mark read, got %d", count)
	}

	current = current.Add(time.Minute)
	if _, err := svc.SendMessage(context.Background(), conv.ID, "ping again", "staff-1"); err != nil {
		t.Fatalf("send: %v", err)
	}
	count, err = svc.UnreadCount(context.Background(), "org-1", "cand-1")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 unread, got %d", count)
	}
}

func TestEditMessage(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	conv := mustCreateConversation(t, svc, nil)
	msg, err := svc.SendMessage(context.Background(), conv.ID, "typo", "cand-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if _, err := svc.EditMessage(context.Background(), msg.ID, "staff-1", "fixed"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-sender, got %v", err)
	}

	edited, err := svc.EditMessage(context.Background(), msg.ID, "cand-1", "fixed")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Content != "fixed" || edited.EditedAt == nil {
		t.Fatalf("unexpected edited message: %+v", edited)
	}
}

func TestDeleteMessage(t *testing.T) {
	svc, _, _ := setupMessaging(t)
	conv, err := svc.CreateConversation(context.Background(), "org-1", "", []string{"cand-1", "staff-2"}, nil, "staff-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	msg, err := svc.SendMessage(context.Background(), conv.ID, "regret", "cand-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// Another participant cannot delete, the creator can.
	if err := svc.DeleteMessage(context.Background(), msg.ID, "staff-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteMessage(context.Background(), msg.ID, "staff-1"); err != nil {
		t.Fatalf("creator delete: %v", err)
	}

	// Deleting twice is a no-op, and the message cannot be edited anymore.
	if err := svc.DeleteMessage(context.Background(), msg.ID, "staff-1"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if _, err := svc.EditMessage(context.Background(), msg.ID, "cand-1", "resurrect"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound editing deleted message, got %v", err)
	}

	msgs, err := svc.ListMessages(context.Background(), conv.ID, "cand-1", 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("deleted message should be hidden, got %d", len(msgs))
	}
}
