package main

import (
	"fmt"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/config"
	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/regulator"
)

// regulatorSession verifies a presented regulator token and builds the
// deployment profile's snapshot policy guard. Commands that can serve
// regulators call this before touching the snapshot store.
func regulatorSession(cfg config.Config, token, profilesDir, profileCode string) (*regulator.PolicyGuard, error) {
	if cfg.RegulatorTokenKey == "" {
		return nil, fmt.Errorf("REGULATOR_TOKEN_KEY is not set")
	}
	issuer := regulator.NewTokenIssuer([]byte(cfg.RegulatorTokenKey), 0)
	if _, err := issuer.Verify(token); err != nil {
		return nil, err
	}

	profile, err := config.LoadProfile(profilesDir, profileCode)
	if err != nil {
		return nil, err
	}
	guard := regulator.NewPolicyGuard(profile.Regulator.SnapshotAllowList)
	if profile.Regulator.AllowAllSnapshots {
		guard.AllowAllSnapshots()
	}
	return guard, nil
}
