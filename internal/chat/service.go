// Package chat is the synchronization facade: the single entry point the
// transport layer uses to submit messages, drive status transitions and
// read conversation state. It orchestrates the store, the subscription
// broker and the status scheduler, serializing mutations per
// conversation so concurrent sends to one conversation never lose an
// update while unrelated conversations proceed in parallel.
package chat

import (
	"errors"
	"time"

	"github.com/matheus3301/inboxd/internal/broker"
	"github.com/matheus3301/inboxd/internal/lock"
	"github.com/matheus3301/inboxd/internal/metrics"
	"github.com/matheus3301/inboxd/internal/scheduler"
	"github.com/matheus3301/inboxd/internal/store"
	"go.uber.org/zap"
)

// NewMessagePayload is the payload of a new-message event.
type NewMessagePayload struct {
	ConversationID string
	Message        *store.Message
}

// StatusUpdatePayload is the payload of a message-status-update event.
type StatusUpdatePayload struct {
	ConversationID string
	MessageID      string
	Status         store.Status
}

// Service coordinates message flow between the store, the broker and
// the scheduler.
type Service struct {
	db       *store.DB
	broker   *broker.Broker
	sched    *scheduler.Scheduler
	locks    *lock.Keyed
	business string
	logger   *zap.Logger
}

// NewService creates the facade and binds it as the scheduler's
// transition applier.
func NewService(db *store.DB, b *broker.Broker, sched *scheduler.Scheduler, business string, logger *zap.Logger) *Service {
	s := &Service{
		db:       db,
		broker:   b,
		sched:    sched,
		locks:    lock.NewKeyed(),
		business: business,
		logger:   logger,
	}
	sched.Bind(s.applyScheduled)
	return s
}

// BusinessNumber returns the business side of every conversation.
func (s *Service) BusinessNumber() string {
	return s.business
}

// Send appends an outgoing message from the business account to the
// conversation, updates the conversation's recency and unread counter,
// fans the message out to subscribers and schedules the delivered/read
// auto-transitions. Validation and lookup failures surface before any
// write.
func (s *Service) Send(conversationID, text string) (*store.Message, error) {
	conv, err := s.db.GetConversation(conversationID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(conv.ID)
	defer s.locks.Unlock(conv.ID)

	msg, err := s.db.AppendMessage(&store.Message{
		ConversationID: conv.ID,
		Sender:         s.business,
		Recipient:      conv.Peer(s.business),
		Body:           text,
		Direction:      store.DirectionOutgoing,
	})
	if err != nil {
		return nil, err
	}

	if err := s.recordAndPublish(conv.ID, msg); err != nil {
		return nil, err
	}
	s.sched.Schedule(msg.ID)

	s.logger.Info("message sent",
		zap.String("conversation_id", conv.ID),
		zap.String("message_id", msg.ID))
	return msg, nil
}

// Receive appends an incoming message from a contact, lazily creating
// the conversation on first contact. The contact record is refreshed
// with the sender's display name (may be empty) and last-seen time.
// Incoming messages start at delivered and are not auto-advanced.
func (s *Service) Receive(from, name, text string) (*store.Message, error) {
	conv, err := s.db.FindOrCreateConversation(s.business, from)
	if err != nil {
		return nil, err
	}
	if err := s.db.UpsertContact(&store.Contact{
		Phone:      from,
		Name:       name,
		IsActive:   true,
		LastSeenAt: time.Now().UnixMilli(),
	}); err != nil {
		return nil, err
	}

	s.locks.Lock(conv.ID)
	defer s.locks.Unlock(conv.ID)

	msg, err := s.db.AppendMessage(&store.Message{
		ConversationID: conv.ID,
		Sender:         from,
		Recipient:      s.business,
		Body:           text,
		Direction:      store.DirectionIncoming,
	})
	if err != nil {
		return nil, err
	}

	if err := s.recordAndPublish(conv.ID, msg); err != nil {
		return nil, err
	}

	s.logger.Info("message received",
		zap.String("conversation_id", conv.ID),
		zap.String("message_id", msg.ID))
	return msg, nil
}

func (s *Service) recordAndPublish(conversationID string, msg *store.Message) error {
	if err := s.db.RecordActivity(conversationID, msg.ID, msg.Body, msg.CreatedAt); err != nil {
		return err
	}
	if err := s.db.IncrementUnread(conversationID); err != nil {
		return err
	}
	metrics.RecordMessage(string(msg.Direction))

	s.publish(broker.Event{
		Kind:           broker.KindNewMessage,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
		Payload: &NewMessagePayload{
			ConversationID: conversationID,
			Message:        msg,
		},
	})
	return nil
}

// ListConversations returns the business account's conversations
// ordered by recency, enriched with contact display data.
func (s *Service) ListConversations(page, limit int, includeArchived bool) ([]store.ConversationView, error) {
	return s.db.ListConversations(s.business, page, limit, includeArchived)
}

// SearchConversations finds conversations by contact name.
func (s *Service) SearchConversations(query string, limit int) ([]store.ConversationView, error) {
	return s.db.SearchConversations(s.business, query, limit)
}

// SearchMessages performs a full-text search over message bodies.
func (s *Service) SearchMessages(query, conversationID string, limit int) ([]store.SearchResult, error) {
	return s.db.SearchMessages(query, conversationID, limit)
}

// OpenConversation marks a conversation as read and returns a page of
// its history. Idempotent: opening twice yields the same page and
// leaves unread at zero.
func (s *Service) OpenConversation(conversationID string, page, limit int, descending bool) ([]store.Message, error) {
	if _, err := s.db.GetConversation(conversationID); err != nil {
		return nil, err
	}

	s.locks.Lock(conversationID)
	defer s.locks.Unlock(conversationID)

	if err := s.db.ResetUnread(conversationID); err != nil {
		return nil, err
	}
	return s.db.ListMessages(conversationID, page, limit, descending)
}

// UpdateStatus applies an externally driven status transition (for
// example a read receipt) and fans the update out. Invalid transitions
// are reported to the caller, never coerced or retried.
func (s *Service) UpdateStatus(messageID string, to store.Status) (*store.Message, error) {
	msg, err := s.db.SetStatus(messageID, to)
	if err != nil {
		return nil, err
	}
	s.publishStatus(msg)
	return msg, nil
}

// ConversationMessageCount reports a conversation's message total for
// pagination.
func (s *Service) ConversationMessageCount(conversationID string) (int64, error) {
	return s.db.ConversationMessageCount(conversationID)
}

// ConversationCount reports the number of conversations.
func (s *Service) ConversationCount() (int64, error) {
	return s.db.ConversationCount()
}

// Counts reports store totals for health reporting.
func (s *Service) Counts() (conversations, messages int64, err error) {
	conversations, err = s.db.ConversationCount()
	if err != nil {
		return 0, 0, err
	}
	messages, err = s.db.MessageCount()
	if err != nil {
		return 0, 0, err
	}
	return conversations, messages, nil
}

// applyScheduled is the scheduler's callback. The store guard decides
// whether the deferred transition still applies; a message that failed
// or advanced out of band is left alone.
func (s *Service) applyScheduled(messageID string, to store.Status) {
	msg, err := s.db.SetStatus(messageID, to)
	if err != nil {
		var invalid *store.InvalidTransitionError
		switch {
		case errors.As(err, &invalid):
			s.logger.Info("skipping stale auto transition",
				zap.String("message_id", messageID),
				zap.String("from", string(invalid.From)),
				zap.String("to", string(invalid.To)))
		case errors.Is(err, store.ErrNotFound):
			s.logger.Warn("auto transition for unknown message",
				zap.String("message_id", messageID))
		default:
			s.logger.Error("auto transition failed",
				zap.String("message_id", messageID), zap.Error(err))
		}
		return
	}
	s.publishStatus(msg)
}

func (s *Service) publishStatus(msg *store.Message) {
	metrics.RecordStatusTransition(string(msg.Status))
	s.publish(broker.Event{
		Kind:           broker.KindStatusUpdate,
		ConversationID: msg.ConversationID,
		Timestamp:      time.Now(),
		Payload: &StatusUpdatePayload{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Status:         msg.Status,
		},
	})
}

// publish is best-effort: a slow or unreachable subscriber never rolls
// back persisted state.
func (s *Service) publish(evt broker.Event) {
	metrics.RecordEventPublished(string(evt.Kind))
	s.broker.Publish(evt)
}
