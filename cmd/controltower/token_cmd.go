package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/config"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/regulator"
)

// runIssueTokenCmd mints a regulator session token.
//
// Exit codes:
//
//	0 = token printed to stdout
//	2 = runtime error
func runIssueTokenCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		subject     string
		agency      string
		ttlHours    int
		profilesDir string
		profileCode string
	)
	cmd.StringVar(&subject, "subject", "", "Auditor identifier (REQUIRED)")
	cmd.StringVar(&agency, "agency", "", "Regulator agency name")
	cmd.IntVar(&ttlHours, "ttl", 0, "Token lifetime in hours; defaults to the profile's token_ttl_hours")
	cmd.StringVar(&profilesDir, "profiles", "./profiles", "Deployment profiles directory")
	cmd.StringVar(&profileCode, "profile", "in", "Deployment profile code")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if subject == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --subject is required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if cfg.RegulatorTokenKey == "" {
		_, _ = fmt.Fprintln(stderr, "Error: REGULATOR_TOKEN_KEY is not set")
		return 2
	}

	if ttlHours <= 0 {
		profile, err := config.LoadProfile(profilesDir, profileCode)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		ttlHours = profile.Regulator.TokenTTLHours
		if ttlHours <= 0 {
			ttlHours = 8
		}
	}

	issuer := regulator.NewTokenIssuer([]byte(cfg.RegulatorTokenKey), time.Duration(ttlHours)*time.Hour)
	token, err := issuer.Issue(subject, agency)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintln(stdout, token)
	return 0
}
