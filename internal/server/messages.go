// Package server defines the JSON wire messages exchanged over the real-time
// channel and shared connection helpers.
package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/lanshare/lanshare/internal/store"
)

// Inbound message types.
const (
	messageTypeAuth = "auth"
	messageTypeChat = "chat_message"
)

// inboundEnvelope covers every message a client may send: an auth attempt
// carrying a token, or a chat message.
type inboundEnvelope struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

// UploadedFileSummary is the public view of a stored file used in upload
// responses and file_uploaded notifications. The listing endpoints use the
// store's own "id" field name; this one keeps the historical "fileId".
type UploadedFileSummary struct {
	FileID     string    `json:"fileId"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// NewUploadedFileSummary builds the public summary for a stored file.
func NewUploadedFileSummary(f store.StoredFile) UploadedFileSummary {
	return UploadedFileSummary{
		FileID:     f.ID,
		Filename:   f.Filename,
		Size:       f.Size,
		UploadedAt: f.UploadedAt,
	}
}

func authSuccessPayload() []byte {
	return marshalPayload(map[string]any{"type": "auth_success"})
}

func authFailedPayload() []byte {
	return marshalPayload(map[string]any{"type": "auth_failed"})
}

func errorPayload(message string) []byte {
	return marshalPayload(map[string]any{"type": "error", "message": message})
}

func filesHistoryPayload(files []store.StoredFile) []byte {
	return marshalPayload(map[string]any{"type": "files_history", "files": files})
}

func fileUploadedPayload(f store.StoredFile) []byte {
	return marshalPayload(map[string]any{
		"type":       "file_uploaded",
		"fileId":     f.ID,
		"filename":   f.Filename,
		"size":       f.Size,
		"uploadedAt": f.UploadedAt,
	})
}

func chatPayload(message, sender string, ts time.Time) []byte {
	return marshalPayload(map[string]any{
		"type":      "chat_message",
		"message":   message,
		"sender":    sender,
		"timestamp": ts,
	})
}

// marshalPayload never fails for the value shapes above; a nil return is
// skipped by the hub's send path.
func marshalPayload(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
