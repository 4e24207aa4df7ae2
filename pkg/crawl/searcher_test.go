package crawl

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/circletools/circle-batch-client/internal/testutil"
	"github.com/circletools/circle-batch-client/pkg/batch"
	"github.com/circletools/circle-batch-client/pkg/client"
)

func newTestClient(t *testing.T, baseURL string) *client.Client {
	t.Helper()

	c, err := client.New(client.Config{
		BaseURL:   baseURL,
		Token:     "test-token",
		UserAgent: "circle-batch-client-test/0.1.0",
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}

// pageRecorder collects results in emission order.
type pageRecorder struct {
	mu      sync.Mutex
	results []batch.TaskResult
}

func (r *pageRecorder) Record(result batch.TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// servePages registers listing and user handlers. pages maps page number to
// author IDs; missing pages reply with an empty list. names maps user ID to
// the served user name.
func servePages(mock *testutil.MockForum, pages map[int][]int64, names map[int64]string) {
	mock.Handle("/api.php/circle/list", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Page int `json:"page"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		authors, ok := pages[req.Page]
		if !ok {
			testutil.WriteEnvelope(w, testutil.Envelope{Code: 1, Data: json.RawMessage("[]")})
			return
		}
		testutil.WriteEnvelope(w, testutil.Envelope{Code: 1, Data: testutil.PostListData(authors...)})
	})

	mock.Handle("/api.php/user/show", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID int64 `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		testutil.WriteEnvelope(w, testutil.Envelope{Code: 1, Data: testutil.UserData(req.ID, names[req.ID])})
	})
}

func TestNewSearcher_Validation(t *testing.T) {
	c := newTestClient(t, "https://forum.example.com")

	if _, err := NewSearcher(nil, DefaultConfig()); err == nil {
		t.Error("NewSearcher(nil) should fail")
	}
	if _, err := NewSearcher(c, Config{Workers: 0}); err == nil {
		t.Error("NewSearcher with zero workers should fail")
	}
	if _, err := NewSearcher(c, DefaultConfig()); err != nil {
		t.Errorf("NewSearcher with defaults error = %v", err)
	}
}

func TestSearch_InvalidPageCount(t *testing.T) {
	s, err := NewSearcher(newTestClient(t, "https://forum.example.com"), DefaultConfig())
	if err != nil {
		t.Fatalf("NewSearcher() error = %v", err)
	}

	if _, err := s.Search(context.Background(), 1, 0, "", &pageRecorder{}); err == nil {
		t.Error("Search with zero pages should fail")
	}
}

func TestSearch_KeywordMatching(t *testing.T) {
	mock := testutil.NewMockForum()
	defer mock.Close()

	servePages(mock,
		map[int][]int64{
			1: {101, 102},
			2: {101, 103},
		},
		map[int64]string{
			101: "alice_target",
			102: "bob",
			103: "carol_target",
		})

	s, err := NewSearcher(newTestClient(t, mock.URL()), Config{
		Workers: 4,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSearcher() error = %v", err)
	}

	recorder := &pageRecorder{}
	result, err := s.Search(context.Background(), 1, 3, "target", recorder)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(result.Matches) != 2 {
		t.Fatalf("len(Matches) = %d, want 2", len(result.Matches))
	}
	for _, m := range result.Matches {
		if m.User.ID != 101 && m.User.ID != 103 {
			t.Errorf("Unexpected match for user %d (%s)", m.User.ID, m.User.Name())
		}
	}

	// Pages 1 and 2 have posts; page 3 is past the end.
	if result.Acc.Success != 2 {
		t.Errorf("Success = %d, want 2", result.Acc.Success)
	}
	if result.Acc.EndOfData != 1 {
		t.Errorf("EndOfData = %d, want 1", result.Acc.EndOfData)
	}
	if result.Acc.Total() != 3 {
		t.Errorf("Total() = %d, want 3", result.Acc.Total())
	}
}

func TestSearch_UserFetchesDeduplicated(t *testing.T) {
	mock := testutil.NewMockForum()
	defer mock.Close()

	// Author 101 appears on every page; the cache must fetch it once.
	servePages(mock,
		map[int][]int64{
			1: {101, 102},
			2: {101},
			3: {101, 102},
		},
		map[int64]string{
			101: "alice",
			102: "bob",
		})

	s, err := NewSearcher(newTestClient(t, mock.URL()), Config{
		Workers: 3,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSearcher() error = %v", err)
	}

	result, err := s.Search(context.Background(), 1, 3, "", &pageRecorder{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if result.UsersFetched != 2 {
		t.Errorf("UsersFetched = %d, want 2", result.UsersFetched)
	}
	if got := mock.Requests("/api.php/user/show"); got != 2 {
		t.Errorf("user/show requests = %d, want 2 (one per distinct author)", got)
	}
	if len(result.Matches) != 2 {
		t.Errorf("len(Matches) = %d, want 2 with empty keyword", len(result.Matches))
	}
}

func TestSearch_ResultsArriveInPageOrder(t *testing.T) {
	mock := testutil.NewMockForum()
	defer mock.Close()

	// Page 1 responds slowest so later pages finish first.
	mock.Handle("/api.php/circle/list", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Page int `json:"page"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Page == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		testutil.WriteEnvelope(w, testutil.Envelope{Code: 1, Data: json.RawMessage("[]")})
	})

	s, err := NewSearcher(newTestClient(t, mock.URL()), Config{
		Workers: 5,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSearcher() error = %v", err)
	}

	recorder := &pageRecorder{}
	if _, err := s.Search(context.Background(), 1, 5, "", recorder); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(recorder.results) != 5 {
		t.Fatalf("len(results) = %d, want 5", len(recorder.results))
	}
	for i, r := range recorder.results {
		if want := batch.TaskKey(i + 1); r.Key != want {
			t.Errorf("results[%d].Key = %d, want %d", i, r.Key, want)
		}
	}
}
