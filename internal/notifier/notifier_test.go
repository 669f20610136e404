package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ResearchDesk/internal/model"
	"ResearchDesk/internal/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "").SetBaseURL(url)
	n.RetryBase = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "<b>hi</b>", got["text"])
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "description": "oops"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "msg", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "description": "bad"})
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "msg", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestSendWithRetry_SplitsLongMessages(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		texts = append(texts, body["text"])
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	defer srv.Close()

	long := strings.Repeat(strings.Repeat("x", 99)+"\n", 100)
	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), long, 0))
	require.Len(t, texts, 3)
	assert.Equal(t, long, strings.Join(texts, ""))
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"short"}, Split("short", 10))

	chunks := Split("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, chunks)

	chunks = Split("ééééé", 5)
	assert.Equal(t, "ééééé", strings.Join(chunks, ""))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 5)
		assert.True(t, strings.ToValidUTF8(c, "?") == c)
	}
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var polls atomic.Int32
	replies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if polls.Add(1) == 1 {
				writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": []any{
					map[string]any{"update_id": 7, "message": map[string]any{"text": "/spam", "chat": map[string]any{"id": 99}}},
					map[string]any{"update_id": 8, "message": map[string]any{"text": " /help ", "chat": map[string]any{"id": 42}}},
				}})
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": []any{}})
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			replies <- body["text"]
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	var commands []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		newTestNotifier(srv.URL).StartPolling(ctx, func(_ context.Context, cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
	}()

	select {
	case reply := <-replies:
		assert.Equal(t, "reply to /help", reply)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, []string{"/help"}, commands)
}

func TestFormatReportDigest(t *testing.T) {
	rep := &model.ResearchReport{
		Tickers:  []string{"AAPL"},
		Duration: 3 * time.Second,
		Markdown: "# Report\n\n## Executive Summary\n\nApple & friends look <solid>.\n\n## Market Trends\n\nUp.",
		Snapshots: []model.MetricsSnapshot{{
			Ticker: "AAPL", LatestPrice: 190, TotalReturn: 0.05, AnnualizedVolatility: 0.2,
			Risk: &model.RiskAssessment{Level: "Low"},
		}},
		Analyses: []model.TickerAnalysis{{Ticker: "AAPL", Err: errors.New("news failed")}},
	}
	out := FormatReportDigest(rep, []string{"reports/a.md"})
	assert.Contains(t, out, "Apple &amp; friends look &lt;solid&gt;.")
	assert.NotContains(t, out, "Up.")
	assert.Contains(t, out, "<b>AAPL</b> 190.00 | +5.00% | vol +20.00% | risk Low")
	assert.Contains(t, out, "⚠️ AAPL: news failed")
	assert.Contains(t, out, "<code>reports/a.md</code>")
}

func TestFormatSnapshotAndHistory(t *testing.T) {
	out := FormatSnapshot(&model.MetricsSnapshot{
		Ticker: "MSFT", Period: model.Period1mo, DataPoints: 21, LatestPrice: 400,
		Risk: &model.RiskAssessment{
			Factors:    []model.FactorScore{{Name: "RSI", Commentary: "neutral", RawScore: 0, Weight: 0.2}},
			Level:      "Moderate",
			WarningMsg: "careful",
		},
	})
	assert.Contains(t, out, "<b>MSFT</b> | 1mo (21 bars)")
	assert.Contains(t, out, "Price: 400.00")
	assert.Contains(t, out, "Risk: <b>Moderate</b>")
	assert.Contains(t, out, "careful")

	assert.Equal(t, "No research runs recorded yet.", FormatHistory(nil))
	h := FormatHistory([]recorder.RunSummary{{Status: recorder.StatusFailed, Tickers: "F", Query: "q", DurationMs: 1500}})
	assert.Contains(t, h, "❌")
	assert.Contains(t, h, "1.5s")
}
