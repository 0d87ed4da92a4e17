package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/progress"
)

type mockDownloader struct {
	events []models.DownloadEvent
	err    error
	got    chan models.DownloadRequest

	// block keeps the stream open until ctx is done, then closes cancelled
	block     bool
	cancelled chan struct{}
}

func (m *mockDownloader) Download(context.Context, models.DownloadRequest, progress.Sink) (*models.DownloadResponse, error) {
	return nil, errors.New("not used")
}

func (m *mockDownloader) StreamDownload(ctx context.Context, req models.DownloadRequest) <-chan models.StreamResult[models.DownloadEvent] {
	if m.got != nil {
		m.got <- req
	}
	ch := make(chan models.StreamResult[models.DownloadEvent])
	go func() {
		defer close(ch)
		for _, e := range m.events {
			select {
			case ch <- models.Ok(e):
			case <-ctx.Done():
				return
			}
		}
		if m.block {
			<-ctx.Done()
			close(m.cancelled)
			return
		}
		if m.err != nil {
			select {
			case ch <- models.Fail[models.DownloadEvent](m.err):
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

func dial(t *testing.T, h http.Handler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

// readAll returns every text message until the server closes the connection
func readAll(t *testing.T, conn *websocket.Conn) ([]map[string]json.RawMessage, error) {
	t.Helper()
	var msgs []map[string]json.RawMessage
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return msgs, err
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("message is not JSON: %q", data)
		}
		msgs = append(msgs, m)
	}
}

func TestHandler_StreamsEventsThenClosesNormally(t *testing.T) {
	downloader := &mockDownloader{
		got: make(chan models.DownloadRequest, 1),
		events: []models.DownloadEvent{
			{RequestID: "r1", Progress: &models.ProgressRecord{RequestID: "r1", OverallFraction: 45.2, Phase: models.PhaseDownloading}},
			{RequestID: "r1", Result: &models.DownloadResponse{Kind: models.SourceSingle, Single: &models.DownloadItemResult{OutputPath: "/m/a.mp3"}}},
		},
	}
	conn := dial(t, NewHandler(downloader, nil))

	if err := conn.WriteJSON(models.DownloadRequest{URL: "https://youtu.be/a", BitrateKbps: 128}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	msgs, err := readAll(t, conn)
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("Expected normal closure, got %v", err)
	}
	if got := <-downloader.got; got.URL != "https://youtu.be/a" || got.BitrateKbps != 128 {
		t.Errorf("request = %+v", got)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}

	var first models.DownloadEvent
	raw, _ := json.Marshal(msgs[0])
	if err := json.Unmarshal(raw, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Progress == nil || first.Progress.Phase != models.PhaseDownloading {
		t.Errorf("first message = %s", raw)
	}
	if _, ok := msgs[1]["result"]; !ok {
		t.Errorf("second message has no result: %v", msgs[1])
	}
}

func TestHandler_ErrorMessageBeforeClose(t *testing.T) {
	downloader := &mockDownloader{err: apperrors.NewInvalidURLError("https://example.com")}
	conn := dial(t, NewHandler(downloader, nil))

	if err := conn.WriteJSON(models.DownloadRequest{URL: "https://example.com"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	msgs, err := readAll(t, conn)
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("Expected normal closure, got %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	var text string
	_ = json.Unmarshal(msgs[0]["error"], &text)
	if !strings.Contains(text, "invalid YouTube URL") {
		t.Errorf("error message = %q", text)
	}
}

func TestHandler_RejectsMalformedRequest(t *testing.T) {
	conn := dial(t, NewHandler(&mockDownloader{}, nil))

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	msgs, err := readAll(t, conn)
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("Expected normal closure, got %v", err)
	}
	if len(msgs) != 1 || msgs[0]["error"] == nil {
		t.Errorf("messages = %v", msgs)
	}
}

func TestHandler_ClientDisconnectCancelsDownload(t *testing.T) {
	downloader := &mockDownloader{
		block:     true,
		cancelled: make(chan struct{}),
		events:    []models.DownloadEvent{{RequestID: "r1", Progress: &models.ProgressRecord{Phase: models.PhasePreparing}}},
	}
	h := NewHandler(downloader, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := conn.WriteJSON(models.DownloadRequest{URL: "https://youtu.be/a"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	conn.Close()

	select {
	case <-downloader.cancelled:
	case <-time.After(10 * time.Second):
		t.Fatal("download was not cancelled after the client disconnected")
	}
}
