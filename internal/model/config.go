package model

import "time"

// Config holds the complete verifier configuration
type Config struct {
	HTTP       HTTPConfig      `yaml:"http" mapstructure:"http"`
	Evidence   EvidenceConfig  `yaml:"evidence" mapstructure:"evidence"`
	Claims     ClaimsConfig    `yaml:"claims" mapstructure:"claims"`
	Thresholds ThresholdConfig `yaml:"thresholds" mapstructure:"thresholds"`
	LLM        LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Pipeline   PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
}

// HTTPConfig configures the content fetcher
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`                         // Per-page fetch timeout
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`                   // HTTP User-Agent
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`           // Response size cap
	FetchWorkers      int           `yaml:"fetch_workers" mapstructure:"fetch_workers"`             // Bounded concurrency for multi-page fetch
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per-domain rate limit
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`           // Honor robots.txt
	HTTPProxy         string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// EvidenceConfig configures evidence assembly
type EvidenceConfig struct {
	Budget         int `yaml:"budget" mapstructure:"budget"`                     // Character budget for the evidence set
	MinSentenceLen int `yaml:"min_sentence_len" mapstructure:"min_sentence_len"` // Sentences shorter than this are noise
	MaxSentenceLen int `yaml:"max_sentence_len" mapstructure:"max_sentence_len"` // Sentences longer than this are chunked into pieces of this size
}

// ClaimsConfig configures claim extraction
type ClaimsConfig struct {
	UseModel  bool `yaml:"use_model" mapstructure:"use_model"` // Decompose via the LLM instead of the rule splitter
	MaxClaims int  `yaml:"max_claims" mapstructure:"max_claims"`
}

// ThresholdConfig holds the scoring thresholds. These are data, not code:
// per-client tuning happens here.
type ThresholdConfig struct {
	PassScore      float64 `yaml:"pass_score" mapstructure:"pass_score"`           // score >= this -> PASS
	FailConfidence float64 `yaml:"fail_confidence" mapstructure:"fail_confidence"` // any CONTRADICTED at or above this -> FAIL
}

// LLMConfig holds language-model capability configuration
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai" or "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"` // Never serialized into config files
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // Seconds, per model call
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Tone      bool   `yaml:"tone" mapstructure:"tone"` // Ask for tone-consistency notes
}

// PipelineConfig configures the end-to-end orchestrator
type PipelineConfig struct {
	Budget time.Duration `yaml:"budget" mapstructure:"budget"` // Wall-clock budget for the whole verification
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:           2 * time.Second,
			UserAgent:         "Copycheck/0.2 (+https://github.com/jmallek/copycheck)",
			MaxBodyBytes:      2_000_000,
			FetchWorkers:      4,
			RequestsPerSecond: 2,
			RespectRobots:     true,
		},
		Evidence: EvidenceConfig{
			Budget:         30_000,
			MinSentenceLen: 15,
			MaxSentenceLen: 500,
		},
		Claims: ClaimsConfig{
			UseModel:  false,
			MaxClaims: 20,
		},
		Thresholds: ThresholdConfig{
			PassScore:      0.9,
			FailConfidence: 0.7,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   2,
			MaxTokens: 1500,
			Tone:      true,
		},
		Pipeline: PipelineConfig{
			Budget: 3 * time.Second,
		},
	}
}
