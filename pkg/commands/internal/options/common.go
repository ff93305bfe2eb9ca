package options

import (
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/arxiv/canonical-go/pkg/errdefs"
	"github.com/arxiv/canonical-go/pkg/xlog"
)

// NewCommonOptions returns a *CommonOptions with default values.
func NewCommonOptions() *CommonOptions {
	return &CommonOptions{}
}

// CommonOptions are options that are common to all commands.
type CommonOptions struct {
	Debug   bool   `json:"debug,omitempty" yaml:"debug,omitempty"`
	LogFile string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	Config  string `json:"-" yaml:"-"`
}

// Flags returns the []cli.Flag related to current options.
func (o *CommonOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "debug",
			Aliases:     []string{"d"},
			Sources:     cli.EnvVars("CANON_DEBUG"),
			Usage:       "enable debug mode",
			Destination: &o.Debug,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Sources:     cli.EnvVars("CANON_LOG_FILE"),
			Usage:       "also write logs to a rotated file",
			Value:       o.LogFile,
			Destination: &o.LogFile,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Sources:     cli.EnvVars("CANON_CONFIG"),
			Usage:       "YAML config file, values take precedence over flags",
			Value:       o.Config,
			Destination: &o.Config,
		},
	}
}

// SetupLogger installs the process logger according to the options.
func (o *CommonOptions) SetupLogger() {
	config := xlog.NewConfig()
	if o.Debug {
		config.Level = xlog.LevelDebug
	}
	config.Path = o.LogFile
	xlog.SetDefault(xlog.New(config))
}

// LoadConfig unmarshals the YAML file at path into dest. Empty path is
// a no-op. Keys absent from the file leave dest untouched.
func LoadConfig(path string, dest any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "read config: %w", err)
	}
	if err := yaml.Unmarshal(data, dest); err != nil {
		return errdefs.Newf(errdefs.ErrInvalidParameter, "parse config %s: %w", path, err)
	}
	return nil
}
