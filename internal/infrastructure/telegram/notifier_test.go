package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"HealthFetcher/internal/domain"
)

func sampleReport() domain.CycleReport {
	at := time.Date(2020, time.October, 6, 12, 0, 0, 0, time.UTC)
	return domain.CycleReport{
		RunID:      "run-1",
		FetchedAt:  at,
		FinishedAt: at.Add(42 * time.Second),
		Outcomes: []domain.SourceOutcome{
			{State: "AK", Status: domain.StatusMerged},
			{State: "CA", Status: domain.StatusExtractFailed},
			{State: "AL", Status: domain.StatusFetchFailed},
		},
		Rows:  56,
		Cells: 300,
	}
}

func TestPublishSummary(t *testing.T) {
	t.Parallel()

	type request struct {
		path, chatID, text, mode string
	}
	got := make(chan request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got <- request{r.URL.Path, r.PostForm.Get("chat_id"), r.PostForm.Get("text"), r.PostForm.Get("parse_mode")}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier("TOKEN", "42", srv.URL)
	if err := n.PublishSummary(context.Background(), sampleReport()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	req := <-got
	if req.path != "/botTOKEN/sendMessage" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if req.chatID != "42" || req.mode != "Markdown" {
		t.Fatalf("unexpected form %+v", req)
	}
	if !strings.Contains(req.text, "failed: AL, CA") {
		t.Fatalf("summary misses failures: %q", req.text)
	}
}

func TestPublishSummaryErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if err := NewNotifier("TOKEN", "42", srv.URL).PublishSummary(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected error on 401")
	}
	if err := NewNotifier("", "42", srv.URL).PublishSummary(context.Background(), sampleReport()); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	msg := Summary(sampleReport())
	for _, want := range []string{"`run-1`", "1 ok, 2 failed", "rows: 56, cells: 300", "took 42s"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("summary missing %q: %q", want, msg)
		}
	}
}
