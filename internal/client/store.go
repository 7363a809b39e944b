package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"curated/internal/cache"
	"curated/internal/models"
)

// API is the part of the server the store reads and writes through
type API interface {
	ListExperiences(ctx context.Context) ([]models.Experience, error)
	ListCreators(ctx context.Context) ([]models.Creator, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	PostMessage(ctx context.Context, conversationID string, req models.PostMessageRequest) (*models.Message, error)
}

// Store держит коллекции, которые клиент уже загрузил. Мутации меняют
// коллекцию на месте, сервер сверяется при следующем принудительном fetch.
type Store struct {
	api   API
	retry cache.RetryPolicy
	ttl   time.Duration

	Experiences *cache.Collection[models.Experience]
	Creators    *cache.Collection[models.Creator]
	Bookings    *cache.Collection[models.Booking]

	mu       sync.Mutex
	messages map[string]*cache.Collection[models.Message]
	newID    func() string
}

type StoreOption func(*Store)

func WithRetryPolicy(p cache.RetryPolicy) StoreOption {
	return func(s *Store) { s.retry = p }
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

func NewStore(api API, opts ...StoreOption) *Store {
	s := &Store{
		api:      api,
		retry:    cache.DefaultRetryPolicy,
		ttl:      cache.DefaultTTL,
		messages: make(map[string]*cache.Collection[models.Message]),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Experiences = newCollection(s, "experiences", api.ListExperiences)
	s.Creators = newCollection(s, "creators", api.ListCreators)
	s.Bookings = newCollection(s, "bookings", api.ListBookings)
	return s
}

func newCollection[T any](s *Store, name string, fetch cache.Fetcher[T]) *cache.Collection[T] {
	return cache.NewCollection(name, fetch,
		cache.WithRetry[T](s.retry),
		cache.WithStaleness[T](cache.TTLPolicy{TTL: s.ttl}),
	)
}

// AddBooking puts a booking created elsewhere (checkout) at the top of the list
func (s *Store) AddBooking(b models.Booking) {
	s.Bookings.Add(b)
}

// UpdateBooking replaces the cached booking with the same id, adding it if absent
func (s *Store) UpdateBooking(b models.Booking) {
	if !s.Bookings.Replace(func(it models.Booking) bool { return it.ID == b.ID }, b) {
		s.Bookings.Add(b)
	}
}

// CancelBooking cancels on the server and applies the result locally
func (s *Store) CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	updated, err := s.api.CancelBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.UpdateBooking(*updated)
	return updated, nil
}

// Conversation returns the message collection of one conversation
func (s *Store) Conversation(conversationID string) *cache.Collection[models.Message] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.messages[conversationID]; ok {
		return c
	}
	c := newCollection(s, "messages:"+conversationID, func(ctx context.Context) ([]models.Message, error) {
		return s.api.ListMessages(ctx, conversationID)
	})
	s.messages[conversationID] = c
	return c
}

// SendMessage вставляет сообщение сразу со статусом pending и временным id.
// После ответа сервера оно заменяется серверной строкой, при ошибке
// получает статус error.
func (s *Store) SendMessage(ctx context.Context, conversationID, senderID string, req models.PostMessageRequest) (models.Message, error) {
	msgs := s.Conversation(conversationID)

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	tempID := s.newID()
	convID := conversationID
	pending := models.Message{
		ID:             tempID,
		ConversationID: &convID,
		SenderID:       senderID,
		Content:        req.Content,
		Type:           msgType,
		Status:         models.MessageStatusPending,
		CreatedAt:      time.Now(),
	}
	msgs.Append(pending)

	saved, err := s.api.PostMessage(ctx, conversationID, req)
	if err != nil {
		msgs.Update(func(m *models.Message) {
			if m.ID == tempID {
				m.Status = models.MessageStatusError
			}
		})
		pending.Status = models.MessageStatusError
		return pending, err
	}

	s.reconcile(msgs, tempID, *saved)
	return *saved, nil
}

// ApplyRealtime merges a message pushed over the websocket
func (s *Store) ApplyRealtime(msg models.Message) {
	if msg.ConversationID == nil {
		return
	}
	msgs := s.Conversation(*msg.ConversationID)
	if !msgs.Replace(func(m models.Message) bool { return m.ID == msg.ID }, msg) {
		msgs.Append(msg)
	}
}

// ApplyStatus marks messages read or delivered when the other side reports it
func (s *Store) ApplyStatus(conversationID string, ids []string, status models.MessageStatus) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.Conversation(conversationID).Update(func(m *models.Message) {
		if _, ok := set[m.ID]; ok && m.Status.CanTransition(status) {
			m.Status = status
		}
	})
}

// Серверная строка могла прийти по websocket раньше ответа на POST
func (s *Store) reconcile(msgs *cache.Collection[models.Message], tempID string, saved models.Message) {
	exists := false
	for _, m := range msgs.Items() {
		if m.ID == saved.ID {
			exists = true
			break
		}
	}
	if exists {
		msgs.Remove(func(m models.Message) bool { return m.ID == tempID })
		return
	}
	if !msgs.Replace(func(m models.Message) bool { return m.ID == tempID }, saved) {
		slog.Debug("Optimistic message vanished before reconcile", "temp_id", tempID, "message_id", saved.ID)
		msgs.Append(saved)
	}
}
