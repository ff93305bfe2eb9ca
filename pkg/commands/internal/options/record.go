package options

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/arxiv/canonical-go/pkg/canonical/register"
	"github.com/arxiv/canonical-go/pkg/canonical/store"
	"github.com/arxiv/canonical-go/pkg/canonical/store/filesystem"
	"github.com/arxiv/canonical-go/pkg/canonical/store/remote"
	"github.com/arxiv/canonical-go/pkg/cmdhelper"
	"github.com/arxiv/canonical-go/pkg/errdefs"
)

// RecordFlagCategory is the category of the record flags.
const RecordFlagCategory = "[Record]"

// NewRecordOptions returns a *RecordOptions with default values.
func NewRecordOptions() *RecordOptions {
	return &RecordOptions{}
}

// RecordOptions locate the record root and the sources new content is
// resolved from.
type RecordOptions struct {
	// Path is the record root directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Cache wraps the storage with an in-memory manifest cache.
	Cache bool `json:"cache,omitempty" yaml:"cache,omitempty"`

	// SourceDirs are local directories file:/// refs resolve against.
	SourceDirs []string `json:"source_dirs,omitempty" yaml:"source_dirs,omitempty"`

	// TrustedHosts are hosts https:// refs may be fetched from.
	TrustedHosts []string `json:"trusted_hosts,omitempty" yaml:"trusted_hosts,omitempty"`

	// CAFiles are extra root certificates trusted for https fetches.
	CAFiles []string `json:"ca_files,omitempty" yaml:"ca_files,omitempty"`
}

// Flags returns the []cli.Flag related to current options.
func (o *RecordOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "record",
			Aliases:     []string{"r"},
			Sources:     cli.EnvVars("CANON_RECORD"),
			Usage:       "record root directory",
			Value:       o.Path,
			Destination: &o.Path,
			Category:    RecordFlagCategory,
		},
		&cli.BoolFlag{
			Name:        "cache",
			Sources:     cli.EnvVars("CANON_CACHE"),
			Usage:       "cache manifests in memory",
			Value:       o.Cache,
			Destination: &o.Cache,
			Category:    RecordFlagCategory,
		},
		&cli.StringSliceFlag{
			Name:        "source-dir",
			Sources:     cli.EnvVars("CANON_SOURCE_DIRS"),
			Usage:       "local directory to resolve file:/// refs against, repeatable",
			Value:       o.SourceDirs,
			Destination: &o.SourceDirs,
			Category:    RecordFlagCategory,
		},
		&cli.StringSliceFlag{
			Name:        "trusted-host",
			Sources:     cli.EnvVars("CANON_TRUSTED_HOSTS"),
			Usage:       "host https:// refs may be fetched from, repeatable",
			Value:       o.TrustedHosts,
			Destination: &o.TrustedHosts,
			Category:    RecordFlagCategory,
		},
		&cli.StringSliceFlag{
			Name:        "ca-files",
			Sources:     cli.EnvVars("CANON_CA_FILES"),
			Usage:       "extra root certificates trusted for https fetches",
			Value:       o.CAFiles,
			Destination: &o.CAFiles,
			Category:    RecordFlagCategory,
			Validator: func(paths []string) error {
				_, err := cmdhelper.LoadTLSCertFiles(paths...)
				return err
			},
		},
	}
}

// Storage builds the record storage rooted at Path.
func (o *RecordOptions) Storage() (store.Storage, error) {
	if o.Path == "" {
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "record root is required")
	}
	var storage store.Storage = filesystem.NewOSStorage(o.Path)
	if o.Cache {
		storage = store.NewCachedStorage(storage)
	}
	return storage, nil
}

// Sources builds the content sources in resolution order.
func (o *RecordOptions) Sources() []store.Source {
	sources := make([]store.Source, 0, len(o.SourceDirs)+1)
	for _, dir := range o.SourceDirs {
		sources = append(sources, filesystem.NewOSSource(dir))
	}
	if len(o.TrustedHosts) > 0 {
		source := remote.NewSource(o.TrustedHosts...)
		if len(o.CAFiles) > 0 {
			// validated at flag parse time
			if pool, err := cmdhelper.LoadTLSCertFiles(o.CAFiles...); err == nil {
				source.SetCertPool(pool)
			}
		}
		sources = append(sources, source)
	}
	return sources
}

// Open opens the register over the configured storage and sources.
func (o *RecordOptions) Open(ctx context.Context) (*register.Register, error) {
	storage, err := o.Storage()
	if err != nil {
		return nil, err
	}
	return register.Open(ctx, storage, o.Sources()...)
}
