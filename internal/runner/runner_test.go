package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mailscan/internal/mailclient"
	"mailscan/internal/policy"
	"mailscan/internal/provider"
	mockprovider "mailscan/internal/provider/mock"
	"mailscan/internal/report"
	"mailscan/internal/runner"
	"mailscan/pkg/domain"
	"mailscan/pkg/logger"
	"mailscan/pkg/serrors"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// phishingEML carries three URL candidates that collapse to two canonical
// URLs: the malicious login page appears both as an anchor and defanged in
// the text part.
const phishingEML = "From: attacker@evil.example\r\n" +
	"Subject: Account suspended\r\n" +
	"Authentication-Results: mx.corp.example; spf=fail; dkim=none; dmarc=fail\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Verify at hxxp://evil[.]example/login or see https://fine.example/help\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<html><body><a href=\"http://evil.example/login\">mybank.com</a></body></html>\r\n" +
	"--b1--\r\n"

func writeEML(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "message.eml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newPolicy(t *testing.T) *policy.Policy {
	t.Helper()

	al, err := policy.ParseAllowlist(nil)
	require.NoError(t, err)

	return policy.New(al, policy.Options{MinSuspiciousToEscalate: 2, YoungDomainMaxAgeDays: 30})
}

type recordingNotifier struct {
	calls atomic.Int32
	last  atomic.Value
}

func (n *recordingNotifier) Notify(_ context.Context, outcome runner.Outcome) {
	n.calls.Add(1)
	n.last.Store(outcome)
}

func newAdapter(t *testing.T, verdicts map[string]domain.Verdict) *mockprovider.MockAdapter {
	t.Helper()

	adapter := mockprovider.NewMockAdapter(gomock.NewController(t))
	adapter.EXPECT().ID().Return(domain.ProviderVirusTotal).AnyTimes()
	adapter.EXPECT().Concurrency().Return(4).AnyTimes()
	adapter.EXPECT().Check(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u string) domain.ProviderResult {
			v, ok := verdicts[u]
			if !ok {
				v = domain.VerdictUnknown
			}

			return domain.ProviderResult{Provider: domain.ProviderVirusTotal, Verdict: v}
		}).AnyTimes()

	return adapter
}

func TestRunEndToEnd(t *testing.T) {
	draftsDir := t.TempDir()
	client := mailclient.NewFileClient(draftsDir)
	adapter := newAdapter(t, map[string]domain.Verdict{
		"http://evil.example/login": domain.VerdictMalicious,
		"https://fine.example/help": domain.VerdictHarmless,
	})
	notifier := &recordingNotifier{}

	r := runner.New(runner.Options{
		Client:   client,
		Registry: provider.Registry{domain.ProviderVirusTotal: adapter},
		Active:   domain.ProviderVirusTotal,
		Policy:   newPolicy(t),
		Builder:  report.NewBuilder(report.Options{AttachOriginal: true}),
		Notifier: notifier,
	})

	rep, err := r.Run(context.Background(), writeEML(t, phishingEML))
	require.NoError(t, err)

	// three candidates, two canonical URLs
	require.Equal(t, 2, rep.Summary.Total)
	require.Equal(t, 1, rep.Summary.Malicious)
	require.Equal(t, 1, rep.Summary.Harmless)
	require.True(t, rep.Escalate)

	require.Contains(t, rep.URLs, "http://evil.example/login")
	require.Equal(t, domain.VerdictMalicious, rep.URLs["http://evil.example/login"].Verdict)
	require.True(t, rep.URLs["http://evil.example/login"].Indicators.AnchorMismatch,
		"anchor text naming another bank must be flagged")

	require.NotNil(t, rep.Auth)
	require.Equal(t, "fail", rep.Auth.SPF)

	// exactly one terminal notification, carrying the draft location
	require.Equal(t, int32(1), notifier.calls.Load())
	outcome := notifier.last.Load().(runner.Outcome)
	require.NoError(t, outcome.Err)
	require.NotEmpty(t, outcome.DraftLocation)

	draft, err := os.ReadFile(outcome.DraftLocation)
	require.NoError(t, err)
	require.Contains(t, string(draft), "original.eml")
	require.Contains(t, string(draft), "evil.example/login")
}

func TestRunCleanMessageDoesNotDraft(t *testing.T) {
	draftsDir := t.TempDir()
	client := mailclient.NewFileClient(draftsDir)
	adapter := newAdapter(t, map[string]domain.Verdict{
		"http://evil.example/login": domain.VerdictHarmless,
		"https://fine.example/help": domain.VerdictHarmless,
	})
	notifier := &recordingNotifier{}

	r := runner.New(runner.Options{
		Client:   client,
		Registry: provider.Registry{domain.ProviderVirusTotal: adapter},
		Active:   domain.ProviderVirusTotal,
		Policy:   newPolicy(t),
		Builder:  report.NewBuilder(report.Options{}),
		Notifier: notifier,
	})

	rep, err := r.Run(context.Background(), writeEML(t, phishingEML))
	require.NoError(t, err)
	require.False(t, rep.Escalate)

	entries, err := os.ReadDir(draftsDir)
	require.NoError(t, err)
	require.Empty(t, entries, "a clean scan must not leave a draft behind")
	require.Equal(t, int32(1), notifier.calls.Load())
}

func TestRunMissingMessageSurfacesError(t *testing.T) {
	notifier := &recordingNotifier{}
	adapter := newAdapter(t, nil)

	r := runner.New(runner.Options{
		Client:   mailclient.NewFileClient(t.TempDir()),
		Registry: provider.Registry{domain.ProviderVirusTotal: adapter},
		Active:   domain.ProviderVirusTotal,
		Policy:   newPolicy(t),
		Builder:  report.NewBuilder(report.Options{}),
		Notifier: notifier,
	})

	_, err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing.eml"))
	require.Error(t, err)
	require.True(t, errors.Is(err, serrors.ErrNotFound))
	require.Equal(t, int32(1), notifier.calls.Load(), "a failed cycle still notifies exactly once")
}

func TestRunUnknownProviderSurfacesError(t *testing.T) {
	r := runner.New(runner.Options{
		Client:   mailclient.NewFileClient(t.TempDir()),
		Registry: provider.Registry{},
		Active:   domain.ProviderVirusTotal,
		Policy:   newPolicy(t),
		Builder:  report.NewBuilder(report.Options{}),
		Notifier: &recordingNotifier{},
	})

	_, err := r.Run(context.Background(), writeEML(t, phishingEML))
	require.Error(t, err)
	require.True(t, errors.Is(err, serrors.ErrNotFound))
}

func TestRunIsSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	ctrl := gomock.NewController(t)
	adapter := mockprovider.NewMockAdapter(ctrl)
	adapter.EXPECT().ID().Return(domain.ProviderVirusTotal).AnyTimes()
	adapter.EXPECT().Concurrency().Return(1).AnyTimes()
	adapter.EXPECT().Check(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string) domain.ProviderResult {
			close(started)
			<-release

			return domain.ProviderResult{Provider: domain.ProviderVirusTotal, Verdict: domain.VerdictHarmless}
		}).AnyTimes()

	r := runner.New(runner.Options{
		Client:   mailclient.NewFileClient(t.TempDir()),
		Registry: provider.Registry{domain.ProviderVirusTotal: adapter},
		Active:   domain.ProviderVirusTotal,
		Policy:   newPolicy(t),
		Builder:  report.NewBuilder(report.Options{}),
		Notifier: &recordingNotifier{},
	})

	ref := writeEML(t, phishingEML)
	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), ref)
		done <- err
	}()

	<-started
	_, err := r.Run(context.Background(), ref)
	require.True(t, errors.Is(err, serrors.ErrBusy), "a second concurrent scan must be rejected")

	close(release)
	require.NoError(t, <-done)
}
