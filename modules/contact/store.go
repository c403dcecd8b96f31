package contact

import (
	"context"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"
)

// MessageStore persists contact messages.
type MessageStore interface {
	Save(ctx context.Context, msg *Message) error
}

// SupabaseStore - inserts messages into a Supabase table
type SupabaseStore struct {
	supabase *supabase.Client
	table    string
}

func NewSupabaseStore(url, serviceKey, table string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &SupabaseStore{supabase: client, table: table}, nil
}

func (s *SupabaseStore) Save(_ context.Context, msg *Message) error {
	insertData := map[string]interface{}{
		"id":         msg.ID,
		"name":       msg.Name,
		"email":      msg.Email,
		"subject":    msg.Subject,
		"message":    msg.Message,
		"created_at": msg.CreatedAt,
	}

	_, _, err := s.supabase.From(s.table).
		Insert(insertData, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert contact message: %w", err)
	}

	log.Printf("✅ [Contact] Message %s saved to %s", msg.ID, s.table)
	return nil
}

// LogStore - only logs messages; used when Supabase is not configured
type LogStore struct{}

func (LogStore) Save(_ context.Context, msg *Message) error {
	log.Printf("📨 [Contact] Message %s from %s <%s>: %q", msg.ID, msg.Name, msg.Email, msg.Subject)
	return nil
}
