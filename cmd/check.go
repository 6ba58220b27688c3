package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mailscan/internal/config"
	"mailscan/internal/runner"
	"mailscan/pkg/domain"
)

// verdictPrinters maps each verdict to its terminal color.
var verdictPrinters = map[domain.Verdict]*color.Color{ //nolint: gochecknoglobals
	domain.VerdictMalicious:  color.New(color.FgRed, color.Bold),
	domain.VerdictSuspicious: color.New(color.FgYellow),
	domain.VerdictHarmless:   color.New(color.FgGreen),
	domain.VerdictUnknown:    color.New(color.FgWhite),
}

func checkCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check <message.eml> [more.eml ...]",
		Short: "Scans the URLs of one or more saved email messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildRunner(cfg, notifier(), progressBar())
			if err != nil {
				return err
			}

			failed := false
			for _, path := range args {
				if _, err := r.Run(cmd.Context(), path); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					failed = true
				}
			}
			if failed {
				return fmt.Errorf("some messages could not be scanned")
			}

			return nil
		},
	}
}

// notifier prints the terminal outcome of each scan cycle.
func notifier() runner.Notifier {
	return runner.NotifierFunc(func(_ context.Context, outcome runner.Outcome) {
		if outcome.Err != nil {
			return
		}
		printReport(outcome.Report, outcome.DraftLocation)
	})
}

// progressBar rewrites one status line as URLs finish.
func progressBar() func(done, total int) {
	return func(done, total int) {
		fmt.Printf("\rchecking URLs %d/%d", done, total)
		if done == total {
			fmt.Println()
		}
	}
}

func printReport(report *domain.ScanReport, draftLocation string) {
	sum := report.Summary
	fmt.Printf("\nscan %s via %s: %d URLs\n", report.ID, report.Provider, sum.Total)
	fmt.Printf("  %s  %s  %s  %s\n",
		verdictPrinters[domain.VerdictMalicious].Sprintf("%d malicious", sum.Malicious),
		verdictPrinters[domain.VerdictSuspicious].Sprintf("%d suspicious", sum.Suspicious),
		verdictPrinters[domain.VerdictHarmless].Sprintf("%d harmless", sum.Harmless),
		verdictPrinters[domain.VerdictUnknown].Sprintf("%d unknown", sum.Unknown))

	urls := make([]string, 0, len(report.URLs))
	for u := range report.URLs {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool {
		ri, rj := report.URLs[urls[i]], report.URLs[urls[j]]
		if ri.Verdict != rj.Verdict {
			return ri.Verdict.Severity() > rj.Verdict.Severity()
		}

		return urls[i] < urls[j]
	})

	for _, u := range urls {
		r := report.URLs[u]
		line := fmt.Sprintf("  %-10s %s", r.Verdict, r.URL)
		if r.ResolvedURL != "" {
			line += " -> " + r.ResolvedURL
		}
		if r.Allowlisted {
			line += " (allowlisted)"
		}
		verdictPrinters[r.Verdict].Println(line)
	}

	if report.Auth != nil {
		fmt.Printf("  auth: spf=%s dkim=%s dmarc=%s\n", report.Auth.SPF, report.Auth.DKIM, report.Auth.DMARC)
	}

	if report.Escalate {
		color.New(color.FgRed).Printf("escalated: report draft written to %s\n", draftLocation)
	} else {
		fmt.Println("no escalation")
	}
}
