package contact

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	store MessageStore
}

func NewService(store MessageStore) *Service {
	if store == nil {
		store = LogStore{}
	}
	return &Service{store: store}
}

// Submit - validates the form and stores it; invalid input returns *ValidationError
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Message, error) {
	req = normalize(req)
	if err := Validate(req); err != nil {
		log.Printf("⚠️  [Contact] Form is invalid: %v", err)
		return nil, err
	}

	msg := &Message{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Subject:   req.Subject,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, msg); err != nil {
		log.Printf("❌ [Contact] Failed to save message: %v", err)
		return nil, err
	}
	return msg, nil
}
