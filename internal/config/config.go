package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/art-battle/internal/battle"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	DatabasePath    string        `env:"DATABASE_DSN" envDefault:"./art_battle.db"`
	MigrationsURL   string        `env:"MIGRATIONS_URL" envDefault:"file://migrations"`
	SessionLifetime time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	Scoring ScoringConfig
	R2      R2Config
	OAuth   OAuthConfig
}

type ScoringConfig struct {
	ArtworkReward            int           `env:"ARTWORK_REWARD" envDefault:"3"`
	LikeReward               int           `env:"LIKE_REWARD" envDefault:"1"`
	AttackReward             int           `env:"ATTACK_REWARD" envDefault:"2"`
	AttackRequiresCounterArt bool          `env:"ATTACK_REQUIRES_COUNTER_ART" envDefault:"false"`
	MaxRetries               uint          `env:"SCORING_MAX_RETRIES" envDefault:"3"`
	RetryInterval            time.Duration `env:"SCORING_RETRY_INTERVAL" envDefault:"50ms"`
	StatusRefreshInterval    time.Duration `env:"STATUS_REFRESH_INTERVAL" envDefault:"1m"`
	ReconcileInterval        time.Duration `env:"RECONCILE_INTERVAL" envDefault:"5m"`
}

func (c ScoringConfig) Rewards() battle.Rewards {
	return battle.Rewards{
		Artwork: c.ArtworkReward,
		Like:    c.LikeReward,
		Attack:  c.AttackReward,
	}
}

// R2Config is optional, without a bucket uploads are refused and artwork must come as an image link.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

func (c R2Config) Enabled() bool {
	return c.Bucket != ""
}

type OAuthConfig struct {
	DiscordKey         string `env:"DISCORD_KEY"`
	DiscordSecret      string `env:"DISCORD_SECRET"`
	DiscordCallbackURL string `env:"DISCORD_CALLBACK_URL"`
	GoogleKey          string `env:"GOOGLE_KEY"`
	GoogleSecret       string `env:"GOOGLE_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Scoring.ArtworkReward < 0 || c.Scoring.LikeReward < 0 || c.Scoring.AttackReward < 0 {
		errs = append(errs, errors.New("rewards must not be negative"))
	}
	if c.Scoring.StatusRefreshInterval <= 0 {
		errs = append(errs, errors.New("STATUS_REFRESH_INTERVAL must be positive"))
	}
	if c.Scoring.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must be positive"))
	}
	if c.Scoring.RetryInterval <= 0 {
		errs = append(errs, errors.New("SCORING_RETRY_INTERVAL must be positive"))
	}
	if c.SessionLifetime <= 0 {
		errs = append(errs, errors.New("SESSION_LIFETIME must be positive"))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if c.R2.Enabled() && (c.R2.AccountID == "" || c.R2.AccessKeyID == "" || c.R2.AccessKeySecret == "") {
		errs = append(errs, errors.New("R2_BUCKET_NAME is set but R2 credentials are missing"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
