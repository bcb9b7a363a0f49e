package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voicefirst-backend/internal/middleware"
	"voicefirst-backend/internal/models"
	"voicefirst-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMessageStore struct {
	conv     *models.Conversation
	messages []*models.Message
}

func (s *stubMessageStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	if s.conv == nil || s.conv.ID != id {
		return nil, services.ErrNotFound
	}
	return s.conv, nil
}

func (s *stubMessageStore) InsertMessage(_ context.Context, msg *models.Message) error {
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubMessageStore) Touch(_ context.Context, _ string, _ time.Time) error {
	return nil
}

type stubGate struct {
	decision models.AdmissionDecision
}

func (s *stubGate) CheckGating(_ context.Context, _ string) models.AdmissionDecision {
	return s.decision
}

func newMessageRouter(t *testing.T, store *stubMessageStore, gate services.Gate) (*chi.Mux, string) {
	t.Helper()

	userService := services.NewUserService(nil, "test-secret")
	token, err := userService.GenerateJWT("user-1")
	require.NoError(t, err)

	handler := NewMessageHandler(
		services.NewMessageService(store, gate),
		services.NewRateLimiter(nil, "message_send", 0, 0),
	)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(userService))
		r.Post("/conversations/{conversation_id}/messages", handler.SendMessage)
	})
	return r, token
}

func sendMessage(r http.Handler, token, content string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(SendMessageRequest{Content: content})
	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSendMessageDeniedByGate(t *testing.T) {
	store := &stubMessageStore{conv: &models.Conversation{ID: "conv-1", UserAID: "user-1", UserBID: "user-2"}}
	gate := &stubGate{decision: models.AdmissionDecision{
		Allowed:          false,
		HasVoiceIntro:    true,
		Reason:           "Voice introduction is still processing, try again shortly",
		ProcessingStatus: "processing",
	}}
	router, token := newMessageRouter(t, store, gate)

	rec := sendMessage(router, token, "hello")

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp GateRejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Voice introduction is still processing, try again shortly", resp.Error)
	assert.False(t, resp.RequiresVoiceIntro)
	assert.Equal(t, "processing", resp.VoiceProcessingStatus)
	assert.Empty(t, store.messages)
}

func TestSendMessageDeniedWithoutIntroAsksForOne(t *testing.T) {
	store := &stubMessageStore{conv: &models.Conversation{ID: "conv-1", UserAID: "user-1", UserBID: "user-2"}}
	gate := &stubGate{decision: models.AdmissionDecision{
		Allowed:       false,
		HasVoiceIntro: false,
		Reason:        "Voice intro required before messaging",
	}}
	router, token := newMessageRouter(t, store, gate)

	rec := sendMessage(router, token, "hello")

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp GateRejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.RequiresVoiceIntro)
	assert.Empty(t, resp.VoiceProcessingStatus)
}

func TestSendMessageCreated(t *testing.T) {
	store := &stubMessageStore{conv: &models.Conversation{ID: "conv-1", UserAID: "user-1", UserBID: "user-2"}}
	gate := &stubGate{decision: models.AdmissionDecision{Allowed: true, HasVoiceIntro: true, ProcessingStatus: "completed"}}
	router, token := newMessageRouter(t, store, gate)

	rec := sendMessage(router, token, "hello")

	require.Equal(t, http.StatusCreated, rec.Code)

	var msg models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "user-1", msg.SenderID)
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, "hello", msg.Content)
	require.Len(t, store.messages, 1)
}

func TestSendMessageRequiresAuth(t *testing.T) {
	store := &stubMessageStore{}
	router, _ := newMessageRouter(t, store, &stubGate{})

	body, _ := json.Marshal(SendMessageRequest{Content: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/conversations/conv-1/messages", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendMessageNotParticipant(t *testing.T) {
	store := &stubMessageStore{conv: &models.Conversation{ID: "conv-1", UserAID: "user-2", UserBID: "user-3"}}
	gate := &stubGate{decision: models.AdmissionDecision{Allowed: true, HasVoiceIntro: true}}
	router, token := newMessageRouter(t, store, gate)

	rec := sendMessage(router, token, "hello")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.messages)
}

func TestSendMessageEmptyContent(t *testing.T) {
	store := &stubMessageStore{conv: &models.Conversation{ID: "conv-1", UserAID: "user-1", UserBID: "user-2"}}
	gate := &stubGate{decision: models.AdmissionDecision{Allowed: true, HasVoiceIntro: true}}
	router, token := newMessageRouter(t, store, gate)

	rec := sendMessage(router, token, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
