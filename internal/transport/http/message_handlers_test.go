package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/roomcast/server/internal/store"
)

func TestMessageHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	aliceToken, aliceID := env.register(t, "alice")
	_, bobID := env.register(t, "bob")

	base := time.Now().Add(-time.Minute)
	for i, content := range []string{"one", "two", "three"} {
		if _, err := env.st.SaveMessage(ctx, &store.Message{
			SenderID:  aliceID,
			Room:      "general",
			Content:   content,
			Type:      store.MessageTypeText,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("seed room message: %v", err)
		}
	}
	if _, err := env.st.SaveMessage(ctx, &store.Message{
		SenderID:   bobID,
		ReceiverID: &aliceID,
		Content:    "direct",
		Type:       store.MessageTypeText,
		CreatedAt:  base.Add(10 * time.Second),
	}); err != nil {
		t.Fatalf("seed direct message: %v", err)
	}

	resp := env.get(t, "/api/messages?room=general", aliceToken)
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var messages []MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 room messages, got %d", len(messages))
	}
	if messages[0].Content != "one" || messages[2].Content != "three" {
		t.Fatalf("expected chronological order, got %q .. %q", messages[0].Content, messages[2].Content)
	}

	resp = env.get(t, "/api/messages?room=general&limit=2", aliceToken)
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "two" {
		t.Fatalf("expected the latest two messages, got %+v", messages)
	}

	resp = env.get(t, fmt.Sprintf("/api/messages?userId=%d", bobID), aliceToken)
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "direct" {
		t.Fatalf("expected the direct thread, got %+v", messages)
	}
}

func TestMessageHistoryValidation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "alice")

	resp := env.get(t, "/api/messages", token)
	resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 without addressing, got %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/messages?room=general&userId=2", token)
	resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 with both room and userId, got %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/messages?userId=abc", token)
	resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400 for malformed userId, got %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/messages?room=general", "")
	resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}
