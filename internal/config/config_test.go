package config

import (
	"strings"
	"testing"
)

func validClassification() *ClassificationConfig {
	return &ClassificationConfig{
		Thresholds: []ThresholdConfig{{
			ValueOperation: "sum",
			ThresholdType:  "greater_than",
			Value:          10,
			DurationMs:     6000,
		}},
	}
}

func TestValidate_RejectsEmptyThresholds(t *testing.T) {
	cc := &ClassificationConfig{Thresholds: nil}
	if err := cc.validateAndDefault("k"); err == nil {
		t.Errorf("expected empty thresholds list to be rejected")
	}
}

func TestValidate_RejectsZeroDuration(t *testing.T) {
	cc := validClassification()
	cc.Thresholds[0].DurationMs = 0
	if err := cc.validateAndDefault("k"); err == nil {
		t.Errorf("expected zero duration_ms to be rejected")
	}
}

func TestValidate_RejectsHighStakeBelowLowStake(t *testing.T) {
	cc := validClassification()
	cc.Thresholds[0].LowStake = u64p(1000)
	cc.Thresholds[0].HighStake = u64p(500)
	if err := cc.validateAndDefault("k"); err == nil {
		t.Errorf("expected high_stake < low_stake to be rejected")
	}
}

func TestValidate_RejectsZeroGroupExpiration(t *testing.T) {
	cc := validClassification()
	cc.GroupExpirationSeconds = u64p(0)
	if err := cc.validateAndDefault("k"); err == nil {
		t.Errorf("expected zero group_expiration_seconds to be rejected")
	}
}

func TestValidate_DefaultsGroupNameToConfigKey(t *testing.T) {
	cc := validClassification()
	if err := cc.validateAndDefault("failed_exceeded_quic_connections"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.GroupName != "failed_exceeded_quic_connections" {
		t.Errorf("expected default group name to be the config key, got %q", cc.GroupName)
	}
	if cc.GroupExpirationSeconds == nil || *cc.GroupExpirationSeconds != secondsPerDay {
		t.Errorf("expected default group_expiration_seconds of 24h, got %v", cc.GroupExpirationSeconds)
	}
	if cc.Thresholds[0].GroupName != cc.GroupName {
		t.Errorf("expected threshold to inherit the classification's group name by default")
	}
}

func TestValidate_ThresholdGroupOverridesClassificationDefault(t *testing.T) {
	cc := validClassification()
	cc.Thresholds[0].GroupName = "custom_group"
	if err := cc.validateAndDefault("k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cc.Thresholds[0].GroupName != "custom_group" {
		t.Errorf("expected explicit threshold group name to be preserved")
	}
}

func TestConfig_Validate_RejectsZeroUselessQuicDuration(t *testing.T) {
	zero := uint64(0)
	c := &Config{UselessQuicConnectionDurationMs: &zero}
	if err := c.Validate(); err == nil {
		t.Errorf("expected zero useless_quic_connection_duration_ms to be rejected")
	}
}

func TestConfig_Validate_DefaultsUselessQuicDuration(t *testing.T) {
	c := &Config{}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.UselessQuicConnectionDurationMs == nil || *c.UselessQuicConnectionDurationMs != defaultUselessQuicMs {
		t.Errorf("expected default useless_quic_connection_duration_ms, got %v", c.UselessQuicConnectionDurationMs)
	}
}

func TestConfig_Validate_RejectsExcessiveLeaderSlots(t *testing.T) {
	c := &Config{OutsideLeaderSlots: &OutsideLeaderSlotsConfig{LeaderSlots: maxLeaderSlots + 1}}
	if err := c.Validate(); err == nil {
		t.Errorf("expected leader_slots above 432000 to be rejected")
	}
}

var validPubkeyHex = strings.Repeat("ab", 32)

func TestConfig_Validate_KnownPubkeysDefaulting(t *testing.T) {
	c := &Config{KnownPubkeys: []PubkeyEntry{{Pubkey: validPubkeyHex}}}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.KnownPubkeys[0].GroupName != "known_pubkeys" {
		t.Errorf("expected default known_pubkeys group name, got %q", c.KnownPubkeys[0].GroupName)
	}
	if c.KnownPubkeys[0].GroupExpirationSeconds == nil || *c.KnownPubkeys[0].GroupExpirationSeconds != secondsPerDay {
		t.Errorf("expected default 24h known_pubkeys expiration, got %v", c.KnownPubkeys[0].GroupExpirationSeconds)
	}
}

func TestConfig_Validate_RejectsEmptyKnownPubkey(t *testing.T) {
	c := &Config{KnownPubkeys: []PubkeyEntry{{Pubkey: ""}}}
	if err := c.Validate(); err == nil {
		t.Errorf("expected an empty pubkey entry to be rejected")
	}
}

func TestConfig_Validate_RejectsMalformedKnownPubkey(t *testing.T) {
	c := &Config{KnownPubkeys: []PubkeyEntry{{Pubkey: "not-hex"}}}
	if err := c.Validate(); err == nil {
		t.Errorf("expected a non-hex pubkey entry to be rejected")
	}

	c = &Config{KnownPubkeys: []PubkeyEntry{{Pubkey: "ab"}}}
	if err := c.Validate(); err == nil {
		t.Errorf("expected a too-short pubkey entry to be rejected")
	}
}

func TestToThresholds_ComputesMaxDuration(t *testing.T) {
	cc := &ClassificationConfig{Thresholds: []ThresholdConfig{
		{ValueOperation: "sum", ThresholdType: "greater_than", DurationMs: 1000},
		{ValueOperation: "average", ThresholdType: "less_than", DurationMs: 9000},
		{ValueOperation: "sum", ThresholdType: "greater_than", DurationMs: 3000},
	}}
	_, maxDuration := cc.toThresholds()
	if maxDuration != 9000 {
		t.Errorf("expected max duration 9000, got %d", maxDuration)
	}
}

func u64p(v uint64) *uint64 { return &v }
