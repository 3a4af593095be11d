package hackernews

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"GigScout/internal/config"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScan_MergesQueriesAndAskHN(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var (
		mu      sync.Mutex
		filters []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search_by_date" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		mu.Lock()
		filters = append(filters, r.URL.Query().Get("numericFilters"))
		mu.Unlock()
		switch r.URL.Query().Get("tags") {
		case "ask_hn":
			fmt.Fprint(w, `{"hits":[
				{"objectID":"1","title":"dup"},
				{"objectID":"3","title":"Ask HN: anyone would pay for invoices?","points":4,"num_comments":1},
				{"objectID":"4","title":"Ask HN: unrelated"}
			]}`)
		default:
			fmt.Fprint(w, `{"hits":[
				{"objectID":"1","title":null,"comment_text":"<p>I would pay &amp; subscribe</p>","points":40,"num_comments":10,"_tags":["comment"]},
				{"objectID":"2","title":"Ask HN: I wish email was easier","story_text":"","points":1000,"num_comments":50,"_tags":["story","ask_hn"]}
			]}`)
		}
	}))
	defer srv.Close()

	b := New(&config.BotConfig{BaseURL: srv.URL, Queries: []string{"would pay"}}, quietLogger()).(*Bot)
	b.now = func() time.Time { return now }

	got := b.Scan(context.Background())
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	first := got[0]
	if first.Title != "I would pay & subscribe" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Type != "pain_post" {
		t.Errorf("type = %s", first.Type)
	}
	// 20 + 40/2 + 10*2
	if first.Intensity != 60 {
		t.Errorf("intensity = %d, want 60", first.Intensity)
	}
	if first.SourceURL == nil || *first.SourceURL != "https://news.ycombinator.com/item?id=1" {
		t.Errorf("url = %v", first.SourceURL)
	}

	if got[1].Type != "ask_hn" || got[1].Intensity != 100 {
		t.Errorf("tagged story: type=%s intensity=%d", got[1].Type, got[1].Intensity)
	}
	if got[2].Type != "ask_hn" || got[2].Intensity != 24 {
		t.Errorf("ask listing: type=%s intensity=%d", got[2].Type, got[2].Intensity)
	}

	want := fmt.Sprintf("created_at_i>%d", now.Add(-7*24*time.Hour).Unix())
	mu.Lock()
	defer mu.Unlock()
	if len(filters) != 2 {
		t.Errorf("requests = %d, want 2", len(filters))
	}
	for _, f := range filters {
		if f != want {
			t.Errorf("numericFilters = %q, want %q", f, want)
		}
	}
}

func TestScan_SourceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b := New(&config.BotConfig{BaseURL: srv.URL}, quietLogger())
	if got := b.Scan(context.Background()); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestScan_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(w, strings.NewReader(`{"hits": [`))
	}))
	defer srv.Close()

	b := New(&config.BotConfig{BaseURL: srv.URL}, quietLogger())
	if got := b.Scan(context.Background()); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}
