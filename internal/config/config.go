package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SegmentCount is the number of positions on the outcome wheel.
const SegmentCount = 7

type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Oracle  OracleConfig  `yaml:"oracle"`
	NATS    NATSConfig    `yaml:"nats"`
	Storage StorageConfig `yaml:"storage"`
	Rules   []RuleEntry   `yaml:"rules"`
}

type EngineConfig struct {
	// Identity is this engine's own address. Entropy requests carry it as the
	// requester, and callbacks claiming a different requester are rejected.
	Identity string `yaml:"identity"`
	Admin    string `yaml:"admin"`

	HouseDenom string `yaml:"house_denom"`

	// CapFractionBps caps a single bet at pool_balance * bps / 10000.
	CapFractionBps uint64 `yaml:"cap_fraction_bps"`

	// LoyaltyThreshold grants one free spin every N settled games.
	LoyaltyThreshold uint64 `yaml:"loyalty_threshold"`

	// NewPlayerFreeSpins seeds the history of a player seen for the first time.
	NewPlayerFreeSpins uint64 `yaml:"new_player_free_spins"`

	LeaderboardSize int `yaml:"leaderboard_size"`

	// FeeAmount, when non-zero, is forwarded to FeeCollector on every paid bet.
	FeeAmount    uint64 `yaml:"fee_amount"`
	FeeCollector string `yaml:"fee_collector"`

	HTTPListen string `yaml:"http_listen"`
}

type OracleConfig struct {
	// Address is the trusted callback sender.
	Address          string `yaml:"address"`
	CallbackGasLimit uint64 `yaml:"callback_gas_limit"`

	// Fee is attached to every entropy request, in house denom base units.
	Fee uint64 `yaml:"fee"`
}

type NATSConfig struct {
	URL             string `yaml:"url"`
	RequestSubject  string `yaml:"request_subject"`
	CallbackSubject string `yaml:"callback_subject"`
	TreasurySubject string `yaml:"treasury_subject"`
	DisburseSubject string `yaml:"disburse_subject"`
}

type StorageConfig struct {
	Directory string `yaml:"directory"`
}

type RuleEntry struct {
	Weight     uint64 `yaml:"weight"`
	Multiplier uint64 `yaml:"multiplier"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// Set defaults
	if config.Engine.CapFractionBps == 0 {
		config.Engine.CapFractionBps = 100 // 1%
	}
	if config.Engine.LoyaltyThreshold == 0 {
		config.Engine.LoyaltyThreshold = 5
	}
	if config.Engine.LeaderboardSize == 0 {
		config.Engine.LeaderboardSize = 5
	}
	if config.Engine.HouseDenom == "" {
		config.Engine.HouseDenom = "ukuji"
	}
	if config.Engine.HTTPListen == "" {
		config.Engine.HTTPListen = ":8080"
	}
	if config.Oracle.CallbackGasLimit == 0 {
		config.Oracle.CallbackGasLimit = 100_000
	}
	if config.Storage.Directory == "" {
		config.Storage.Directory = "data"
	}
	if len(config.Rules) == 0 {
		config.Rules = DefaultRules()
	}
	if len(config.Rules) != SegmentCount {
		return nil, fmt.Errorf("config: expected %d rule entries, got %d", SegmentCount, len(config.Rules))
	}

	return &config, nil
}

// DefaultRules is the production wheel: frequent low-multiplier segments and
// two rare 45x segments, audit total weight 52.
func DefaultRules() []RuleEntry {
	return []RuleEntry{
		{Weight: 24, Multiplier: 1},
		{Weight: 12, Multiplier: 3},
		{Weight: 8, Multiplier: 5},
		{Weight: 4, Multiplier: 10},
		{Weight: 2, Multiplier: 20},
		{Weight: 1, Multiplier: 45},
		{Weight: 1, Multiplier: 45},
	}
}
