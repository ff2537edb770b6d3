// Package config loads and validates the classifier's JSON configuration
// file and translates it into the types internal/classifier needs to build
// a State (§6, §4.I).
package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-playground/validator/v10"

	"github.com/bji/txingest-classifier/internal/classifier"
)

const (
	secondsPerDay           = 24 * 60 * 60
	maxLeaderSlots           = 432000
	defaultUselessQuicMs     = classifier.DefaultUselessQuicConnectionDurationMs
)

// PubkeyEntry is one known_pubkeys list entry.
type PubkeyEntry struct {
	Pubkey                 string  `json:"pubkey" validate:"required"`
	GroupName              string  `json:"group_name,omitempty"`
	GroupExpirationSeconds *uint64 `json:"group_expiration_seconds,omitempty"`
}

// ThresholdConfig is one entry of a ClassificationConfig's thresholds list.
type ThresholdConfig struct {
	GroupName           string  `json:"group_name,omitempty"`
	GroupExpirationSeconds *uint64 `json:"group_expiration_seconds,omitempty"`
	LowStake            *uint64 `json:"low_stake,omitempty"`
	HighStake           *uint64 `json:"high_stake,omitempty"`
	MinValueCount       *uint64 `json:"min_value_count,omitempty"`
	ValueOperation      string  `json:"value_operation" validate:"required,oneof=sum average"`
	ThresholdType       string  `json:"threshold_type" validate:"required,oneof=greater_than greater_than_or_equal_to less_than less_than_or_equal_to"`
	Value               uint64  `json:"value"`
	DurationMs          uint64  `json:"duration_ms" validate:"required,gt=0"`
	ContinueAfterMatch  bool    `json:"continue_after_match,omitempty"`
}

// ClassificationConfig is one of the five optional classification blocks.
type ClassificationConfig struct {
	GroupName              string            `json:"group_name,omitempty"`
	GroupExpirationSeconds *uint64           `json:"group_expiration_seconds,omitempty"`
	EvaluateAllThresholds  bool              `json:"evaluate_all_thresholds,omitempty"`
	Thresholds             []ThresholdConfig `json:"thresholds" validate:"required,min=1,dive"`
}

// OutsideLeaderSlotsConfig reserves the advisory leader-slot group (§9:
// never used to gate classification, logged only).
type OutsideLeaderSlotsConfig struct {
	GroupName   string `json:"group_name,omitempty"`
	LeaderSlots uint64 `json:"leader_slots" validate:"lte=432000"`
}

// Config is the top-level JSON document read from the path given on the
// command line (default ./config.json).
type Config struct {
	KnownPubkeys                    []PubkeyEntry             `json:"known_pubkeys,omitempty"`
	FailedExceededQuicConnections   *ClassificationConfig     `json:"failed_exceeded_quic_connections,omitempty"`
	UselessQuicConnections          *ClassificationConfig     `json:"useless_quic_connections,omitempty"`
	FeeLamportsSubmitted            *ClassificationConfig     `json:"fee_lamports_submitted,omitempty"`
	FeeMicrolamportsPerCuLimit      *ClassificationConfig     `json:"fee_microlamports_per_cu_limit,omitempty"`
	FeeMicrolamportsPerCuUsed       *ClassificationConfig     `json:"fee_microlamports_per_cu_used,omitempty"`
	UselessQuicConnectionDurationMs *uint64                   `json:"useless_quic_connection_duration_ms,omitempty"`
	OutsideLeaderSlots              *OutsideLeaderSlotsConfig `json:"outside_leader_slots,omitempty"`
}

// Load reads path, unmarshals it and validates it, filling in every default
// the schema specifies along the way.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// classificationKeys pairs each of the five optional classification blocks'
// JSON key (also its default group name) with an accessor for the block.
var classificationKeys = []struct {
	name string
	get  func(*Config) **ClassificationConfig
}{
	{"failed_exceeded_quic_connections", func(c *Config) **ClassificationConfig { return &c.FailedExceededQuicConnections }},
	{"useless_quic_connections", func(c *Config) **ClassificationConfig { return &c.UselessQuicConnections }},
	{"fee_lamports_submitted", func(c *Config) **ClassificationConfig { return &c.FeeLamportsSubmitted }},
	{"fee_microlamports_per_cu_limit", func(c *Config) **ClassificationConfig { return &c.FeeMicrolamportsPerCuLimit }},
	{"fee_microlamports_per_cu_used", func(c *Config) **ClassificationConfig { return &c.FeeMicrolamportsPerCuUsed }},
}

// Validate runs struct-tag validation on each configured classification
// block, then walks every optional section applying the cross-field rejection and
// in-place defaulting rules of §6 (mirroring the original classification.rs
// / threshold.rs .validate() chains).
func (c *Config) Validate() error {
	v := validator.New()

	for _, k := range classificationKeys {
		cc := *k.get(c)
		if cc == nil {
			continue
		}
		if err := v.Struct(cc); err != nil {
			return fmt.Errorf("%s: %w", k.name, err)
		}
		if err := cc.validateAndDefault(k.name); err != nil {
			return fmt.Errorf("%s: %w", k.name, err)
		}
	}

	for i := range c.KnownPubkeys {
		p := &c.KnownPubkeys[i]
		if p.Pubkey == "" {
			return fmt.Errorf("known_pubkeys[%d]: pubkey must not be empty", i)
		}
		if _, err := parsePubkeyHex(p.Pubkey); err != nil {
			return fmt.Errorf("known_pubkeys[%d]: %w", i, err)
		}
		if p.GroupName == "" {
			p.GroupName = "known_pubkeys"
		}
		if p.GroupExpirationSeconds == nil {
			d := uint64(secondsPerDay)
			p.GroupExpirationSeconds = &d
		} else if *p.GroupExpirationSeconds == 0 {
			return fmt.Errorf("known_pubkeys[%d]: group_expiration_seconds must not be zero", i)
		}
	}

	if c.UselessQuicConnectionDurationMs == nil {
		d := uint64(defaultUselessQuicMs)
		c.UselessQuicConnectionDurationMs = &d
	} else if *c.UselessQuicConnectionDurationMs == 0 {
		return fmt.Errorf("useless_quic_connection_duration_ms must not be zero")
	}

	if c.OutsideLeaderSlots != nil {
		if c.OutsideLeaderSlots.GroupName == "" {
			c.OutsideLeaderSlots.GroupName = "outside_leader_slots"
		}
		if c.OutsideLeaderSlots.LeaderSlots > maxLeaderSlots {
			return fmt.Errorf("outside_leader_slots: leader_slots exceeds %d", maxLeaderSlots)
		}
	}

	return nil
}

// validateAndDefault applies the classification- and threshold-level
// cross-field rules and defaulting, using defaultGroupName (the config
// block's own JSON key) as the fallback group name.
func (cc *ClassificationConfig) validateAndDefault(defaultGroupName string) error {
	if len(cc.Thresholds) == 0 {
		return fmt.Errorf("thresholds must not be empty")
	}

	if cc.GroupName == "" {
		cc.GroupName = defaultGroupName
	}
	if cc.GroupExpirationSeconds == nil {
		d := uint64(secondsPerDay)
		cc.GroupExpirationSeconds = &d
	} else if *cc.GroupExpirationSeconds == 0 {
		return fmt.Errorf("group_expiration_seconds must not be zero")
	}

	for i := range cc.Thresholds {
		t := &cc.Thresholds[i]
		if t.DurationMs == 0 {
			return fmt.Errorf("thresholds[%d]: duration_ms must not be zero", i)
		}
		if t.LowStake != nil && t.HighStake != nil && *t.HighStake < *t.LowStake {
			return fmt.Errorf("thresholds[%d]: high_stake must not be less than low_stake", i)
		}
		if t.GroupName == "" {
			t.GroupName = cc.GroupName
		}
		if t.GroupExpirationSeconds == nil {
			t.GroupExpirationSeconds = cc.GroupExpirationSeconds
		} else if *t.GroupExpirationSeconds == 0 {
			return fmt.Errorf("thresholds[%d]: group_expiration_seconds must not be zero", i)
		}
	}

	return nil
}

// toThresholds converts the validated/defaulted config rows into the
// classifier engine's runtime Threshold values, and returns the maximum
// duration_ms across them (the classification's GC horizon, §4.C).
func (cc *ClassificationConfig) toThresholds() ([]*classifier.Threshold, uint64) {
	var maxDuration uint64
	out := make([]*classifier.Threshold, 0, len(cc.Thresholds))
	for _, t := range cc.Thresholds {
		ct := &classifier.Threshold{
			GroupName:          t.GroupName,
			GroupExpirationMs:  *t.GroupExpirationSeconds * 1000,
			LowStake:           t.LowStake,
			HighStake:          t.HighStake,
			MinValueCount:      t.MinValueCount,
			Value:              t.Value,
			DurationMs:         t.DurationMs,
			ContinueAfterMatch: t.ContinueAfterMatch,
		}
		switch t.ValueOperation {
		case "average":
			ct.ValueOp = classifier.ValueAverage
		default:
			ct.ValueOp = classifier.ValueSum
		}
		switch t.ThresholdType {
		case "greater_than_or_equal_to":
			ct.Comparator = classifier.GreaterThanOrEqual
		case "less_than":
			ct.Comparator = classifier.LessThan
		case "less_than_or_equal_to":
			ct.Comparator = classifier.LessThanOrEqual
		default:
			ct.Comparator = classifier.GreaterThan
		}
		out = append(out, ct)
		if t.DurationMs > maxDuration {
			maxDuration = t.DurationMs
		}
	}
	return out, maxDuration
}

// ToClassification builds the runtime Classification for one optional
// config block, or nil if the block was absent.
func (cc *ClassificationConfig) ToClassification() *classifier.Classification {
	if cc == nil {
		return nil
	}
	thresholds, maxDuration := cc.toThresholds()
	return classifier.NewClassification(thresholds, cc.EvaluateAllThresholds, maxDuration)
}

// ToStateConfig builds a classifier.StateConfig from the validated Config.
// emit is supplied by the caller (cmd/classifier wires stdout plus any
// optional debug-API sinks before calling this).
func (c *Config) ToStateConfig(emit classifier.Emitter) classifier.StateConfig {
	return classifier.StateConfig{
		FailedExceeded:                  c.FailedExceededQuicConnections.ToClassification(),
		Useless:                         c.UselessQuicConnections.ToClassification(),
		FeeLamports:                     c.FeeLamportsSubmitted.ToClassification(),
		FeeMicroPerCuLimit:              c.FeeMicrolamportsPerCuLimit.ToClassification(),
		FeeMicroPerCuUsed:               c.FeeMicrolamportsPerCuUsed.ToClassification(),
		Pubkey:                          c.ToPubkeyClassifier(),
		UselessQuicConnectionDurationMs: *c.UselessQuicConnectionDurationMs,
		OutsideLeaderSlotsThreshold:     c.outsideLeaderSlotsThreshold(),
		Emit:                            emit,
	}
}

// outsideLeaderSlotsThreshold returns nil when outside_leader_slots was not
// configured, matching StateConfig's "always treated as Leader" contract
// for that case (§4.F, §9).
func (c *Config) outsideLeaderSlotsThreshold() *uint64 {
	if c.OutsideLeaderSlots == nil {
		return nil
	}
	return &c.OutsideLeaderSlots.LeaderSlots
}

// ToPubkeyClassifier parses each known_pubkeys entry's hex-encoded pubkey
// into a classifier.Pubkey and builds the static lookup table (§4.G).
// Validate has already rejected any entry parsePubkeyHex would fail on, so
// the error here is unreachable in practice; ToPubkeyClassifier is only
// ever called on a Config that passed Validate.
func (c *Config) ToPubkeyClassifier() *classifier.PubkeyClassifier {
	rules := make(map[classifier.Pubkey]classifier.PubkeyRule, len(c.KnownPubkeys))
	for _, p := range c.KnownPubkeys {
		hash, err := parsePubkeyHex(p.Pubkey)
		if err != nil {
			continue
		}
		rules[hash] = classifier.PubkeyRule{
			GroupName:              p.GroupName,
			GroupExpirationSeconds: *p.GroupExpirationSeconds,
		}
	}
	return classifier.NewPubkeyClassifier(rules)
}

// parsePubkeyHex decodes a hex-encoded 32-byte validator identity into a
// classifier.Pubkey.
func parsePubkeyHex(s string) (classifier.Pubkey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return classifier.Pubkey{}, fmt.Errorf("invalid pubkey hex: %w", err)
	}
	hash, err := chainhash.NewHash(raw)
	if err != nil {
		return classifier.Pubkey{}, fmt.Errorf("invalid pubkey length: %w", err)
	}
	return *hash, nil
}
