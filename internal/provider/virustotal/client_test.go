package virustotal_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mailscan/internal/provider/virustotal"
	"mailscan/pkg/domain"
	"mailscan/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// fakeVT scripts the submit and poll endpoints. Each element of polls is
// served in turn; the last one repeats.
type fakeVT struct {
	polls        []string // JSON bodies for /analyses/{id}
	pollStatuses []int    // optional per-poll HTTP status, default 200
	lastAnalysis string   // JSON body for /urls/{id}, 404 when empty

	pollCount atomic.Int32
}

func (f *fakeVT) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.Header.Get("X-Apikey"))
		fmt.Fprint(w, `{"data": {"id": "analysis-1"}}`)
	})
	mux.HandleFunc("/analyses/analysis-1", func(w http.ResponseWriter, r *http.Request) {
		n := int(f.pollCount.Add(1)) - 1
		if n >= len(f.polls) {
			n = len(f.polls) - 1
		}
		if len(f.pollStatuses) > n && f.pollStatuses[n] != 0 {
			w.WriteHeader(f.pollStatuses[n])
			if f.pollStatuses[n] != http.StatusOK {
				return
			}
		}
		fmt.Fprint(w, f.polls[n])
	})
	mux.HandleFunc("/urls/", func(w http.ResponseWriter, r *http.Request) {
		if f.lastAnalysis == "" {
			w.WriteHeader(http.StatusNotFound)

			return
		}
		wantID := strings.TrimRight(base64.URLEncoding.EncodeToString([]byte("http://slow.example/")), "=")
		require.Equal(t, "/urls/"+wantID, r.URL.Path)
		fmt.Fprint(w, f.lastAnalysis)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newClient(srv *httptest.Server, maxPolls int) *virustotal.Client {
	return virustotal.New(srv.Client(), virustotal.Options{
		APIKey:       "k",
		BaseURL:      srv.URL,
		MaxPolls:     maxPolls,
		PollInterval: time.Millisecond,
		Timeout:      5 * time.Second,
	})
}

func analysisBody(status string, malicious, suspicious, harmless int) string {
	return fmt.Sprintf(
		`{"data": {"attributes": {"status": %q, "stats": {"malicious": %d, "suspicious": %d, "harmless": %d}}}}`,
		status, malicious, suspicious, harmless)
}

func TestCheckPollsUntilCompleted(t *testing.T) {
	f := &fakeVT{polls: []string{
		analysisBody("queued", 0, 0, 0),
		analysisBody("queued", 0, 0, 0),
		analysisBody("completed", 0, 0, 40),
	}}
	c := newClient(f.server(t), 12)

	res := c.Check(context.Background(), "http://fine.example/")
	require.Equal(t, domain.VerdictHarmless, res.Verdict)
	require.Equal(t, int32(3), f.pollCount.Load())
}

func TestCheckMaliciousVoteWinsBeforeCompletion(t *testing.T) {
	f := &fakeVT{polls: []string{analysisBody("queued", 2, 0, 10)}}
	c := newClient(f.server(t), 12)

	res := c.Check(context.Background(), "http://evil.example/")
	require.Equal(t, domain.VerdictMalicious, res.Verdict)
	require.Equal(t, int32(1), f.pollCount.Load(), "any malicious vote should stop polling")
}

func TestCheckRateLimitRetriesSamePoll(t *testing.T) {
	f := &fakeVT{
		polls:        []string{"", analysisBody("completed", 0, 1, 0)},
		pollStatuses: []int{http.StatusTooManyRequests, http.StatusOK},
	}
	c := newClient(f.server(t), 12)

	res := c.Check(context.Background(), "http://gray.example/")
	require.Equal(t, domain.VerdictSuspicious, res.Verdict)
	require.Equal(t, int32(2), f.pollCount.Load())
}

func TestCheckFallsBackToLastAnalysis(t *testing.T) {
	f := &fakeVT{
		polls: []string{analysisBody("queued", 0, 0, 0)},
		lastAnalysis: `{"data": {"attributes": {` +
			`"last_analysis_stats": {"malicious": 3, "suspicious": 0, "harmless": 10}}}}`,
	}
	c := newClient(f.server(t), 2)

	res := c.Check(context.Background(), "http://slow.example/")
	require.Equal(t, domain.VerdictMalicious, res.Verdict, "exhausted polls should fall back to the last recorded analysis")
}

func TestCheckWithoutKeySkipsNetwork(t *testing.T) {
	c := virustotal.New(nil, virustotal.Options{BaseURL: "http://127.0.0.1:1"})

	res := c.Check(context.Background(), "http://a.example/")
	require.Equal(t, domain.VerdictUnknown, res.Verdict)
	require.NotEmpty(t, res.Err)
}

func TestDomainAgeDays(t *testing.T) {
	created := time.Now().AddDate(0, 0, -10).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/domains/young.example", r.URL.Path)
		fmt.Fprintf(w, `{"data": {"attributes": {"creation_date": %d}}}`, created)
	}))
	defer srv.Close()

	c := virustotal.New(srv.Client(), virustotal.Options{APIKey: "k", BaseURL: srv.URL})
	age, err := c.DomainAgeDays(context.Background(), "young.example")
	require.NoError(t, err)
	require.InDelta(t, 10, age, 1)
}

func TestDomainAgeDaysNoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"attributes": {}}}`)
	}))
	defer srv.Close()

	c := virustotal.New(srv.Client(), virustotal.Options{APIKey: "k", BaseURL: srv.URL})
	_, err := c.DomainAgeDays(context.Background(), "old.example")
	require.Error(t, err)
}
