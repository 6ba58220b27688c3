package main

import (
	"fmt"

	"mailscan/internal/config"
	"mailscan/internal/mailclient"
	"mailscan/internal/policy"
	"mailscan/internal/provider"
	"mailscan/internal/provider/phishtank"
	"mailscan/internal/provider/safebrowsing"
	"mailscan/internal/provider/virustotal"
	"mailscan/internal/report"
	"mailscan/internal/resolve"
	"mailscan/internal/runner"
	"mailscan/internal/scan"
	"mailscan/pkg/domain"
	"mailscan/pkg/serrors"
)

// buildRegistry constructs all three provider adapters from configuration.
// Adapters with missing credentials still register; they answer unknown.
func buildRegistry(cfg *config.Config) provider.Registry {
	vt := virustotal.New(nil, virustotal.Options{
		APIKey:       cfg.Providers.VirusTotal.APIKey,
		BaseURL:      cfg.Providers.VirusTotal.BaseURL,
		MaxPolls:     cfg.Providers.VirusTotal.MaxPolls,
		PollInterval: cfg.Providers.VirusTotal.PollInterval,
		Timeout:      cfg.Providers.VirusTotal.Timeout,
		Concurrency:  cfg.Providers.VirusTotal.Concurrency,
	})
	gsb := safebrowsing.New(nil, safebrowsing.Options{
		APIKey:    cfg.Providers.SafeBrowsing.APIKey,
		BaseURL:   cfg.Providers.SafeBrowsing.BaseURL,
		BatchSize: cfg.Providers.SafeBrowsing.BatchSize,
		Timeout:   cfg.Providers.SafeBrowsing.Timeout,
	})
	pt := phishtank.New(nil, phishtank.Options{
		AppKey:      cfg.Providers.PhishTank.AppKey,
		BaseURL:     cfg.Providers.PhishTank.BaseURL,
		Timeout:     cfg.Providers.PhishTank.Timeout,
		Concurrency: cfg.Providers.PhishTank.Concurrency,
	})

	return provider.Registry{
		vt.ID():  vt,
		gsb.ID(): gsb,
		pt.ID():  pt,
	}
}

// buildRunner assembles the full scan pipeline from configuration.
func buildRunner(cfg *config.Config, notifier runner.Notifier, progress scan.Progress) (*runner.Runner, error) {
	active := domain.ProviderID(cfg.Mode)
	if !domain.ValidProvider(active) {
		return nil, serrors.With(serrors.ErrBadRequest, "unknown mode %q", cfg.Mode)
	}

	allowlist, err := policy.ParseAllowlist(cfg.Policy.Allowlist)
	if err != nil {
		return nil, fmt.Errorf("could not parse allowlist: %w", err)
	}

	return runner.New(runner.Options{
		Client:   mailclient.NewFileClient(cfg.Report.DraftsDir),
		Registry: buildRegistry(cfg),
		Active:   active,
		Resolver: resolve.New(nil, cfg.Resolver.MaxHops, cfg.Resolver.HopTimeout),
		Policy: policy.New(allowlist, policy.Options{
			MinSuspiciousToEscalate: cfg.Policy.MinSuspiciousToEscalate,
			YoungDomainMaxAgeDays:   cfg.Policy.YoungDomainMaxAgeDays,
		}),
		Builder: report.NewBuilder(report.Options{
			Recipients:     cfg.Report.Recipients,
			AttachOriginal: cfg.Report.AttachOriginal,
		}),
		Notifier: notifier,
		Progress: progress,
	}), nil
}
