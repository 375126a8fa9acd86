package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"promptledger/crypto"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress           string   `toml:"RPCAddress"`
	DataDir              string   `toml:"DataDir"`
	MetadataPath         string   `toml:"MetadataPath"`
	NetworkName          string   `toml:"NetworkName"`
	OperatorKeystorePath string   `toml:"OperatorKeystorePath"`
	AdminAddress         string   `toml:"AdminAddress"`
	PlatformAddress      string   `toml:"PlatformAddress"`
	TreasuryAddress      string   `toml:"TreasuryAddress"`
	JWTSecret            string   `toml:"JWTSecret"`
	RateLimitPerMinute   int      `toml:"RateLimitPerMinute"`
	PausedModules        []string `toml:"PausedModules"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if cfg.OperatorKeystorePath == "" {
		if err := ensureKeystore(path, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "prompt-local"
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./prompt-data"
	}
	if strings.TrimSpace(cfg.MetadataPath) == "" {
		cfg.MetadataPath = filepath.Join(cfg.DataDir, "metadata.db")
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 600
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
}

// Validate rejects configurations whose operator addresses do not decode.
func Validate(cfg *Config) error {
	for name, raw := range map[string]string{
		"AdminAddress":    cfg.AdminAddress,
		"PlatformAddress": cfg.PlatformAddress,
		"TreasuryAddress": cfg.TreasuryAddress,
	} {
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("config: %s is required", name)
		}
		if _, err := crypto.DecodeAddress(raw); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// Addresses decodes the three operator identities.
func (c *Config) Addresses() (admin, platform, treasury [20]byte, err error) {
	decoded, err := crypto.DecodeAddress(c.AdminAddress)
	if err != nil {
		return admin, platform, treasury, fmt.Errorf("config: AdminAddress: %w", err)
	}
	admin = decoded.Array()
	decoded, err = crypto.DecodeAddress(c.PlatformAddress)
	if err != nil {
		return admin, platform, treasury, fmt.Errorf("config: PlatformAddress: %w", err)
	}
	platform = decoded.Array()
	decoded, err = crypto.DecodeAddress(c.TreasuryAddress)
	if err != nil {
		return admin, platform, treasury, fmt.Errorf("config: TreasuryAddress: %w", err)
	}
	treasury = decoded.Array()
	return admin, platform, treasury, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := defaultKeystorePath(configPath)
	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	cfg.OperatorKeystorePath = keystorePath
	return persist(configPath, cfg)
}

// createDefault creates and saves a default configuration file. The operator
// key doubles as the admin identity until the file is edited.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}

	operator := key.PubKey().Address().String()
	cfg := &Config{
		RPCAddress:           ":8080",
		DataDir:              "./prompt-data",
		NetworkName:          "prompt-local",
		OperatorKeystorePath: keystorePath,
		AdminAddress:         operator,
		PlatformAddress:      operator,
		TreasuryAddress:      operator,
		RateLimitPerMinute:   600,
		PausedModules:        []string{},
	}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "operator.keystore")
}
