package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains provider credentials, scan policy, report drafting settings and
// HTTP server settings. The configuration is loaded once per scan cycle and
// never mutated mid-scan.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// Mode selects the active reputation provider: virustotal, safebrowsing or phishtank.
	Mode string `env:"MODE" env-default:"virustotal" yaml:"mode"`

	// Providers contains credentials and tuning for the external reputation services.
	Providers struct {
		VirusTotal struct {
			// APIKey authenticates against the VirusTotal v3 API. Empty means
			// the adapter short-circuits to unknown without network calls.
			APIKey string `env:"VT_API_KEY" yaml:"apiKey"`
			// BaseURL overrides the API endpoint, mainly for tests.
			BaseURL string `env:"VT_BASE_URL" env-default:"https://www.virustotal.com/api/v3" yaml:"baseURL"`
			// MaxPolls bounds how many times an analysis is polled before
			// giving up with unknown.
			MaxPolls int `env:"VT_MAX_POLLS" env-default:"12" yaml:"maxPolls"`
			// PollInterval is the delay between analysis polls.
			PollInterval time.Duration `env:"VT_POLL_INTERVAL" env-default:"1500ms" yaml:"pollInterval"`
			// Timeout bounds one full check of a single URL.
			Timeout time.Duration `env:"VT_TIMEOUT" env-default:"18s" yaml:"timeout"`
			// Concurrency is the scanner worker cap for this provider.
			Concurrency int `env:"VT_CONCURRENCY" env-default:"4" yaml:"concurrency"`
		} `yaml:"virustotal"`

		SafeBrowsing struct {
			// APIKey authenticates against the Safe Browsing v4 lookup API.
			APIKey  string `env:"GSB_API_KEY" yaml:"apiKey"`
			BaseURL string `env:"GSB_BASE_URL" env-default:"https://safebrowsing.googleapis.com/v4" yaml:"baseURL"`
			// BatchSize chunks the candidate set for threatMatches:find.
			BatchSize int           `env:"GSB_BATCH_SIZE" env-default:"30" yaml:"batchSize"`
			Timeout   time.Duration `env:"GSB_TIMEOUT" env-default:"10s" yaml:"timeout"`
		} `yaml:"safebrowsing"`

		PhishTank struct {
			// AppKey is optional; the adapter runs keyless in reduced mode.
			AppKey  string `env:"PT_APP_KEY" yaml:"appKey"`
			BaseURL string `env:"PT_BASE_URL" env-default:"https://checkurl.phishtank.com" yaml:"baseURL"`
			Timeout time.Duration `env:"PT_TIMEOUT" env-default:"10s" yaml:"timeout"`
			// Concurrency is the scanner worker cap for this provider.
			Concurrency int `env:"PT_CONCURRENCY" env-default:"6" yaml:"concurrency"`
		} `yaml:"phishtank"`

		// Legacy flat keys kept so configs written for older releases keep
		// working. They are only consulted when the nested keys are empty.
		LegacyVTKey  string `env:"VTKEY" yaml:"vtKey"`
		LegacyGSBKey string `env:"GSBKEY" yaml:"gsbKey"`
		LegacyPTKey  string `env:"PTKEY" yaml:"ptKey"`
	} `yaml:"providers"`

	// Resolver configures redirect resolution for shortened URLs.
	Resolver struct {
		// MaxHops bounds how many redirects are followed per URL.
		MaxHops int `env:"RESOLVER_MAX_HOPS" env-default:"6" yaml:"maxHops"`
		// HopTimeout bounds each individual redirect-following request.
		HopTimeout time.Duration `env:"RESOLVER_HOP_TIMEOUT" env-default:"10s" yaml:"hopTimeout"`
	} `yaml:"resolver"`

	// Policy configures signal fusion and the escalation decision.
	Policy struct {
		// Allowlist rules exempt known-safe hosts from the escalation
		// threshold. A bare domain matches the host and its subdomains, an
		// http(s):// value is a URL prefix and a value wrapped in slashes is
		// a regular expression.
		Allowlist []string `env:"POLICY_ALLOWLIST" env-separator:"," yaml:"allowlist"`
		// MinSuspiciousToEscalate is the number of non-allowlisted suspicious
		// URLs required to draft a report. Minimum 1.
		MinSuspiciousToEscalate int `env:"POLICY_MIN_SUSPICIOUS" env-default:"2" yaml:"minSuspiciousToEscalate"`
		// YoungDomainMaxAgeDays upgrades harmless verdicts on freshly
		// registered domains.
		YoungDomainMaxAgeDays int `env:"POLICY_YOUNG_DOMAIN_DAYS" env-default:"30" yaml:"youngDomainMaxAgeDays"`
	} `yaml:"policy"`

	// Report configures the drafted report email.
	Report struct {
		// Recipients receive the drafted report.
		Recipients []string `env:"REPORT_RECIPIENTS" env-separator:"," env-default:"info@antiphishing.jp,meiwaku@dekyo.or.jp" yaml:"recipients"`
		// AttachOriginal attaches the scanned message as original.eml.
		AttachOriginal bool `env:"REPORT_ATTACH_ORIGINAL" env-default:"true" yaml:"attachOriginal"`
		// DraftsDir is where draft .eml files are written.
		DraftsDir string `env:"REPORT_DRAFTS_DIR" env-default:"drafts" yaml:"draftsDir"`
	} `yaml:"report"`

	// HTTP contains all HTTP server related configurations for serve mode.
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"1m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"2m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"1m" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// applyDefaults resolves legacy key aliases and clamps out-of-range values so
// that older or partial configs load without erroring.
func (cfg *Config) applyDefaults() {
	if cfg.Providers.VirusTotal.APIKey == "" {
		cfg.Providers.VirusTotal.APIKey = cfg.Providers.LegacyVTKey
	}
	if cfg.Providers.SafeBrowsing.APIKey == "" {
		cfg.Providers.SafeBrowsing.APIKey = cfg.Providers.LegacyGSBKey
	}
	if cfg.Providers.PhishTank.AppKey == "" {
		cfg.Providers.PhishTank.AppKey = cfg.Providers.LegacyPTKey
	}

	if cfg.Policy.MinSuspiciousToEscalate < 1 {
		cfg.Policy.MinSuspiciousToEscalate = 1
	}

	// Legacy short mode names from older configs.
	switch cfg.Mode {
	case "vt":
		cfg.Mode = "virustotal"
	case "gsb":
		cfg.Mode = "safebrowsing"
	case "pt":
		cfg.Mode = "phishtank"
	}
}

// Load receives the path for yaml config file and returns a filled Config struct.
// A missing file is not an error; environment variables and defaults apply.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		// fall back to env-only when the file is absent
		if err2 := cleanenv.ReadEnv(&cfg); err2 != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}
	cfg.applyDefaults()

	return &cfg, nil
}
