// Package runner wires the whole pipeline together: it loads a message,
// extracts and canonicalizes URL candidates, resolves shortened links, runs
// the active provider, fuses the signals, applies the escalation policy, and
// drafts a report when the policy says so. One Runner serves one mail
// client; only one scan may run at a time.
package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mailscan/internal/extract"
	"mailscan/internal/mailclient"
	"mailscan/internal/policy"
	"mailscan/internal/provider"
	"mailscan/internal/report"
	"mailscan/internal/resolve"
	"mailscan/internal/scan"
	"mailscan/internal/urlnorm"
	"mailscan/pkg/domain"
	"mailscan/pkg/logger"
	"mailscan/pkg/metrics"
	"mailscan/pkg/serrors"
)

// Outcome is the terminal notification emitted exactly once per scan cycle,
// successful or not.
type Outcome struct {
	// Report is the finished scan report, nil when the cycle failed before
	// producing one.
	Report *domain.ScanReport
	// DraftLocation is where the report draft was stored, empty when the
	// scan did not escalate.
	DraftLocation string
	// Err is the setup failure that aborted the cycle, if any.
	Err error
}

// Notifier receives the terminal notification of a scan cycle.
type Notifier interface {
	Notify(ctx context.Context, outcome Outcome)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, outcome Outcome)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, outcome Outcome) { f(ctx, outcome) }

// Runner executes scan cycles.
type Runner struct {
	client   mailclient.Client
	registry provider.Registry
	active   domain.ProviderID
	resolver *resolve.Resolver
	policy   *policy.Policy
	builder  *report.Builder
	notifier Notifier
	progress scan.Progress

	// busy makes Run single-flight: a second concurrent call fails fast
	// instead of queueing behind a scan that may poll for a while.
	busy atomic.Bool
}

// Options bundle the Runner's collaborators.
type Options struct {
	Client   mailclient.Client
	Registry provider.Registry
	Active   domain.ProviderID
	Resolver *resolve.Resolver
	Policy   *policy.Policy
	Builder  *report.Builder
	// Notifier receives the terminal notification; nil means notifications
	// are only logged.
	Notifier Notifier
	// Progress is forwarded to the scanner; may be nil.
	Progress scan.Progress
}

// New constructs a Runner.
func New(opts Options) *Runner {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(ctx context.Context, outcome Outcome) {
			if outcome.Err != nil {
				logger.Error(ctx, "scan failed", zap.Error(outcome.Err))

				return
			}
			logger.Info(ctx, "scan finished",
				zap.Bool("escalate", outcome.Report.Escalate),
				zap.String("draft", outcome.DraftLocation))
		})
	}

	return &Runner{
		client:   opts.Client,
		registry: opts.Registry,
		active:   opts.Active,
		resolver: opts.Resolver,
		policy:   opts.Policy,
		builder:  opts.Builder,
		notifier: notifier,
		progress: opts.Progress,
	}
}

// Run executes one scan cycle for the message identified by ref. Only setup
// failures surface as errors; per-URL provider failures are absorbed into
// unknown verdicts. Whatever happens, the notifier fires exactly once.
func (r *Runner) Run(ctx context.Context, ref string) (*domain.ScanReport, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return nil, serrors.With(serrors.ErrBusy, "a scan is already running")
	}
	defer r.busy.Store(false)

	rep, draftLocation, err := r.run(ctx, ref)
	if err != nil {
		metrics.Scans.WithLabelValues("failed").Inc()
		r.notifier.Notify(ctx, Outcome{Err: err})

		return nil, err
	}

	outcome := "clean"
	if rep.Escalate {
		outcome = "escalated"
	}
	metrics.Scans.WithLabelValues(outcome).Inc()
	r.notifier.Notify(ctx, Outcome{Report: rep, DraftLocation: draftLocation})

	return rep, nil
}

func (r *Runner) run(ctx context.Context, ref string) (*domain.ScanReport, string, error) {
	startedAt := time.Now()

	msg, err := r.client.Message(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("could not load message: %w", err)
	}

	adapter, err := r.registry.Get(r.active)
	if err != nil {
		return nil, "", fmt.Errorf("could not select provider: %w", err)
	}

	ctx = logger.WithFields(ctx,
		zap.String("messageRef", ref),
		zap.String("provider", string(adapter.ID())))

	candidates := extractCandidates(msg)
	order, byURL := urlnorm.Dedupe(candidates)
	logger.Info(ctx, "extracted URL candidates",
		zap.Int("candidates", len(candidates)),
		zap.Int("unique", len(order)))

	rep := &domain.ScanReport{
		ID:        domain.NewScanID(),
		Provider:  adapter.ID(),
		URLs:      make(map[string]domain.URLReport, len(order)),
		Auth:      extract.ParseAuthResults(msg.AuthResultsHeader),
		StartedAt: startedAt,
	}

	targets, resolved := r.resolveShorteners(ctx, order)

	cache := scan.NewCache()
	results := scan.New(adapter, cache, r.progress).Scan(ctx, targets)

	secondary := r.secondaryAdapter(adapter)
	ager, _ := adapter.(provider.DomainAger)
	ageByHost := map[string]*int{}

	for i, canon := range order {
		res := results[i]
		sig := policy.Signals{}

		if res.Verdict == domain.VerdictHarmless {
			if secondary != nil {
				sig.SecondaryListed = secondary.Check(ctx, targets[i]).Verdict == domain.VerdictMalicious
			}
			if ager != nil {
				sig.DomainAgeDays = domainAge(ctx, ager, ageByHost, targets[i])
			}
		}

		urlReport := domain.URLReport{
			URL:           canon,
			Primary:       res.Verdict,
			Verdict:       r.policy.Fuse(res.Verdict, sig),
			Result:        res,
			Allowlisted:   r.policy.Allowlisted(canon),
			Indicators:    policy.Flag(byURL[canon], canon),
			DomainAgeDays: sig.DomainAgeDays,
		}
		if resolved[canon] != "" && resolved[canon] != canon {
			urlReport.ResolvedURL = resolved[canon]
		}

		rep.URLs[canon] = urlReport
		rep.Summary.Add(urlReport.Verdict)
	}

	rep.Escalate = r.policy.Escalate(rep.URLs)
	rep.FinishedAt = time.Now()

	var draftLocation string
	if rep.Escalate {
		draft := r.builder.Draft(*rep, msg)
		draftLocation, err = r.client.ComposeDraft(ctx, draft)
		if err != nil {
			return nil, "", fmt.Errorf("could not compose report draft: %w", err)
		}
		logger.Info(ctx, "report draft composed", zap.String("location", draftLocation))
	}

	return rep, draftLocation, nil
}

// extractCandidates walks the message's text parts.
func extractCandidates(msg *mailclient.Message) []domain.CandidateURL {
	var out []domain.CandidateURL
	for _, part := range msg.Parts {
		switch part.MediaType {
		case "text/html":
			out = append(out, extract.FromHTML(part.Body)...)
		default:
			out = append(out, extract.FromText(part.Body)...)
		}
	}

	return out
}

// resolveShorteners follows redirects for shortener-hosted URLs only, so the
// scan sees the landing page without fetching every URL in the message. The
// returned targets are index-aligned with order; resolved maps a canonical
// URL to its canonicalized destination.
func (r *Runner) resolveShorteners(ctx context.Context, order []string) ([]string, map[string]string) {
	targets := make([]string, len(order))
	resolved := make(map[string]string, len(order))

	for i, canon := range order {
		targets[i] = canon
		if r.resolver == nil || !policy.IsShortener(canon) {
			continue
		}

		dest := r.resolver.Resolve(ctx, canon)
		if canonDest, err := urlnorm.Canonicalize(dest); err == nil {
			dest = canonDest
		}
		if dest != canon {
			targets[i] = dest
			resolved[canon] = dest
		}
	}

	return targets, resolved
}

// secondaryAdapter picks the cross-check provider: the fallback-chain lookup
// when it is registered and not already the active one. It needs no
// credentials, which makes it a cheap second opinion.
func (r *Runner) secondaryAdapter(active provider.Adapter) provider.Adapter {
	if active.ID() == domain.ProviderPhishTank {
		return nil
	}
	secondary, err := r.registry.Get(domain.ProviderPhishTank)
	if err != nil {
		return nil
	}

	return secondary
}

// domainAge memoizes the age lookup per host within one cycle and absorbs
// failures into a nil age.
func domainAge(ctx context.Context, ager provider.DomainAger, memo map[string]*int, URL string) *int {
	host := urlnorm.Host(URL)
	if host == "" {
		return nil
	}
	if age, ok := memo[host]; ok {
		return age
	}

	days, err := ager.DomainAgeDays(ctx, host)
	if err != nil {
		logger.Debug(ctx, "domain age unavailable", zap.String("host", host), zap.Error(err))
		memo[host] = nil

		return nil
	}

	memo[host] = &days

	return &days
}
