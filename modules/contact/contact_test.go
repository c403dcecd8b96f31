package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	messages []*Message
	err      error
}

func (m *memoryStore) Save(_ context.Context, msg *Message) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	return nil
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		Name:    "Ada",
		Email:   "ada@example.com",
		Subject: "Hello",
		Message: "Loved the portfolio.",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SubmitRequest)
		fields map[string]string
	}{
		{"valid", func(*SubmitRequest) {}, nil},
		{"missing name", func(r *SubmitRequest) { r.Name = "" }, map[string]string{"name": "required"}},
		{"missing everything", func(r *SubmitRequest) { *r = SubmitRequest{} }, map[string]string{
			"name": "required", "email": "required", "subject": "required", "message": "required",
		}},
		{"display name form", func(r *SubmitRequest) { r.Email = "Ada <ada@example.com>" }, map[string]string{"email": "invalid email"}},
		{"no at sign", func(r *SubmitRequest) { r.Email = "ada.example.com" }, map[string]string{"email": "invalid email"}},
		{"space in address", func(r *SubmitRequest) { r.Email = "ada lovelace@example.com" }, map[string]string{"email": "invalid email"}},
		{"local part too long", func(r *SubmitRequest) { r.Email = strings.Repeat("a", 65) + "@example.com" }, map[string]string{"email": "invalid email"}},
		{"plus addressing", func(r *SubmitRequest) { r.Email = "ada+portfolio@mail.example.com" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := Validate(req)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var invalid *ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.fields, invalid.Fields)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"subject": "required", "email": "invalid email"}}
	assert.Equal(t, "invalid contact form: email, subject", err.Error())
}

func TestService_SubmitTrimsAndStores(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store)

	req := validRequest()
	req.Name = "  Ada  "
	msg, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "Ada", msg.Name)
	assert.False(t, msg.CreatedAt.IsZero())
	require.Len(t, store.messages, 1)
	assert.Same(t, msg, store.messages[0])
}

func TestService_WhitespaceIsMissing(t *testing.T) {
	store := &memoryStore{}
	req := validRequest()
	req.Message = "   "

	_, err := NewService(store).Submit(context.Background(), req)
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "required", invalid.Fields["message"])
	assert.Empty(t, store.messages)
}

func TestService_DefaultsToLogStore(t *testing.T) {
	msg, err := NewService(nil).Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
}

func post(t *testing.T, store MessageStore, body string) (*httptest.ResponseRecorder, SubmitResponse) {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(NewService(store)).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/contact", bytes.NewBufferString(body)))

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHandler_Submit(t *testing.T) {
	store := &memoryStore{}
	body, _ := json.Marshal(validRequest())

	rec, resp := post(t, store, string(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.ID)
	assert.Len(t, store.messages, 1)
}

func TestHandler_SubmitInvalid(t *testing.T) {
	store := &memoryStore{}

	rec, resp := post(t, store, `{"name":"Ada","email":"nope","subject":"","message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, map[string]string{"email": "invalid email", "subject": "required"}, resp.Fields)
	assert.Empty(t, store.messages)

	rec, resp = post(t, store, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", resp.Error)
}

func TestHandler_SubmitStoreFailure(t *testing.T) {
	body, _ := json.Marshal(validRequest())

	rec, resp := post(t, &memoryStore{err: errors.New("db down")}, string(body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", resp.Status)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestSupabaseStore_InsertsRow(t *testing.T) {
	var (
		method, path, apiKey string
		row                  map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path, apiKey = r.Method, r.URL.Path, r.Header.Get("apikey")
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &row)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store, err := NewSupabaseStore(srv.URL, "service-key", "portfolio_contact_messages")
	require.NoError(t, err)

	msg, err := NewService(store).Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.True(t, strings.HasSuffix(path, "/portfolio_contact_messages"), path)
	assert.Equal(t, "service-key", apiKey)
	assert.Equal(t, msg.ID, row["id"])
	assert.Equal(t, "ada@example.com", row["email"])
	assert.Equal(t, "Hello", row["subject"])
}
