package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zlm2012/sdtscan/logger"
)

type PriceReset string

const (
	// PriceResetOnPriceDescriptor zeroes the price tag only when a price
	// descriptor decodes successfully.
	PriceResetOnPriceDescriptor PriceReset = "price-descriptor"
	// PriceResetOnEveryDescriptor zeroes the price tag before every
	// descriptor, whatever its tag.
	PriceResetOnEveryDescriptor PriceReset = "every-descriptor"
)

type TextDecoding string

const (
	TextDVB TextDecoding = "dvb"
	TextRaw TextDecoding = "raw"
)

type Config struct {
	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // true => zap dev (color), false => zap prod (JSON)

	// PrimaryProductID is the product id whose price and HD channel count
	// are copied from the 0x87 price descriptor.
	PrimaryProductID uint8        `yaml:"primary_product_id"`
	PriceReset       PriceReset   `yaml:"price_reset"`
	TextDecoding     TextDecoding `yaml:"text_decoding"`

	RecordTags bool   `yaml:"record_tags"`
	VerifyCRC  bool   `yaml:"verify_crc"`
	Output     string `yaml:"output"` // "json" | "yaml"
}

func Default() *Config {
	return &Config{
		LogLevel:         "info",
		PrettyLog:        true,
		PrimaryProductID: 1,
		PriceReset:       PriceResetOnPriceDescriptor,
		TextDecoding:     TextDVB,
		VerifyCRC:        true,
		Output:           "json",
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path or
// a missing file yields the defaults. SDTSCAN_* environment variables are
// applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.LogLevel = getenv("SDTSCAN_LOG_LEVEL", c.LogLevel)
	c.Output = getenv("SDTSCAN_OUTPUT", c.Output)
	c.PriceReset = PriceReset(getenv("SDTSCAN_PRICE_RESET", string(c.PriceReset)))
	c.TextDecoding = TextDecoding(getenv("SDTSCAN_TEXT_DECODING", string(c.TextDecoding)))

	var err error
	if c.PrettyLog, err = getenvBool("SDTSCAN_PRETTY_LOG", c.PrettyLog); err != nil {
		return err
	}
	if c.RecordTags, err = getenvBool("SDTSCAN_RECORD_TAGS", c.RecordTags); err != nil {
		return err
	}
	if c.VerifyCRC, err = getenvBool("SDTSCAN_VERIFY_CRC", c.VerifyCRC); err != nil {
		return err
	}
	if v := os.Getenv("SDTSCAN_PRIMARY_PRODUCT_ID"); v != "" {
		id, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid SDTSCAN_PRIMARY_PRODUCT_ID %q: %w", v, err)
		}
		c.PrimaryProductID = uint8(id)
	}
	return nil
}

func (c *Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch c.PriceReset {
	case PriceResetOnPriceDescriptor, PriceResetOnEveryDescriptor:
	default:
		return fmt.Errorf("invalid price_reset %q", c.PriceReset)
	}
	switch c.TextDecoding {
	case TextDVB, TextRaw:
	default:
		return fmt.Errorf("invalid text_decoding %q", c.TextDecoding)
	}
	switch c.Output {
	case "json", "yaml":
	default:
		return fmt.Errorf("invalid output %q", c.Output)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid boolean for %s: %q", key, v)
	}
	return b, nil
}
