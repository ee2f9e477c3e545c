package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/zlm2012/sdtscan/config"
	"github.com/zlm2012/sdtscan/genre"
	"github.com/zlm2012/sdtscan/logger"
)

// newCLIApp creates the CLI application with all commands. Results are
// written to out; logs go to stderr.
func newCLIApp(out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "sdtscan",
		Usage:   "Collect DVB services from SDT sections",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "log-level", Usage: "debug|info|warn|error"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "json|yaml"},
			&cli.BoolFlag{Name: "record-tags", Usage: "Report every descriptor tag seen"},
			&cli.BoolFlag{Name: "no-crc", Usage: "Accept sections with a bad CRC_32"},
		},
		Commands: []*cli.Command{
			scanCmd(),
			sectionCmd(),
			genreCmd(),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.Bool("record-tags") {
		cfg.RecordTags = true
	}
	if c.Bool("no-crc") {
		cfg.VerifyCRC = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadSettings is loadConfig plus the logger it configures. Callers own
// the logger and must Sync it.
func loadSettings(c *cli.Context) (*config.Config, logger.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Read a transport stream and print every service found in its SDTs",
		ArgsUsage: "<file.ts|->",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("scan takes exactly one file argument", 1)
			}
			cfg, log, err := loadSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer func() { _ = log.Sync() }()

			var r io.Reader = os.Stdin
			if path := c.Args().First(); path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				defer f.Close()
				r = f
			}

			s := newScanner(cfg, log)
			if err := s.feedStream(r); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return output(c.App.Writer, cfg.Output, s.result())
		},
	}
}

func sectionCmd() *cli.Command {
	return &cli.Command{
		Name:      "section",
		Usage:     "Apply hex encoded SDT sections and print the resulting services",
		ArgsUsage: "<hex>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("section needs at least one hex argument", 1)
			}
			cfg, log, err := loadSettings(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer func() { _ = log.Sync() }()

			s := newScanner(cfg, log)
			for i, arg := range c.Args().Slice() {
				raw, err := hex.DecodeString(strings.Join(strings.Fields(arg), ""))
				if err != nil {
					return cli.Exit(fmt.Sprintf("section %d: %v", i+1, err), 1)
				}
				if err := s.feedSection(raw); err != nil {
					return cli.Exit(fmt.Sprintf("section %d: %v", i+1, err), 1)
				}
			}
			return output(c.App.Writer, cfg.Output, s.result())
		},
	}
}

type genreCode struct {
	Code     genre.Code `json:"code" yaml:"code"`
	Allowed  bool       `json:"allowed" yaml:"allowed"`
	Category string     `json:"category,omitempty" yaml:"category,omitempty"`
}

type genreResult struct {
	Genre string      `json:"genre" yaml:"genre"`
	Codes []genreCode `json:"codes" yaml:"codes"`
}

func genreCmd() *cli.Command {
	return &cli.Command{
		Name:      "genre",
		Usage:     "Classify content codes (level1<<4 | level2, decimal)",
		ArgsUsage: "<code>...",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			codes := make([]genre.Code, 0, c.NArg())
			res := genreResult{Codes: []genreCode{}}
			for _, arg := range c.Args().Slice() {
				v, err := strconv.ParseUint(arg, 10, 16)
				if err != nil {
					return cli.Exit(fmt.Sprintf("invalid code %q", arg), 1)
				}
				code := genre.Code(v)
				codes = append(codes, code)
				gc := genreCode{Code: code, Allowed: genre.Allowed(code)}
				if code < 0x100 {
					gc.Category = genre.Category(uint8(code >> 4))
				}
				res.Codes = append(res.Codes, gc)
			}
			res.Genre = genre.Text(codes)
			return output(c.App.Writer, cfg.Output, res)
		},
	}
}

func output(w io.Writer, format string, v any) error {
	if format == "yaml" {
		return outputYAML(w, v)
	}
	return outputJSON(w, v)
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
