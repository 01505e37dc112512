package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tilewall/internal/catalog"
)

const (
	DefaultTemplate        = catalog.DefaultTemplate
	DefaultTotal           = catalog.DefaultTotal
	DefaultSmallWidth      = 600
	DefaultSmallSize       = 3
	DefaultLargeSize       = 4
	DefaultBlankFraction   = 0.2
	DefaultDisplayedImages = 20
	DefaultFadeDuration    = 60
	DefaultTickRate        = 60
	DefaultLoadTimeout     = 10 * time.Second
	DefaultWorkers         = 4
	DefaultUserAgent       = "tilewall/1.0"
	DefaultSnapshotDir     = ".tilewall"
)

// Release policies for a plain click (pointer up without a move) on a tile.
const (
	ReleaseRestore = "restore"
	ReleaseDiscard = "discard"
)

type Config struct {
	Catalog     CatalogConfig `yaml:"catalog"`
	Grid        GridConfig    `yaml:"grid"`
	Fade        FadeConfig    `yaml:"fade"`
	Drag        DragConfig    `yaml:"drag"`
	Loader      LoaderConfig  `yaml:"loader"`
	Seed        int64         `yaml:"seed"`
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file"`
	SnapshotDir string        `yaml:"snapshot_dir"`
}

type CatalogConfig struct {
	URLTemplate string `yaml:"url_template"`
	Total       int    `yaml:"total"`
}

type GridConfig struct {
	// Size pins N; 0 derives it from the viewport width.
	Size            int     `yaml:"size"`
	SmallWidth      int     `yaml:"small_width"`
	SmallSize       int     `yaml:"small_size"`
	LargeSize       int     `yaml:"large_size"`
	BlankFraction   float64 `yaml:"blank_fraction"`
	DisplayedImages int     `yaml:"displayed_images"`
	ReinitOnResize  bool    `yaml:"reinit_on_resize"`
}

type FadeConfig struct {
	Duration int `yaml:"duration"`
	TickRate int `yaml:"tick_rate"`
}

type DragConfig struct {
	ReleasePolicy string `yaml:"release_policy"`
}

type LoaderConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
	UserAgent string        `yaml:"user_agent"`
	Offline   bool          `yaml:"offline"`
	FailIDs   []int         `yaml:"fail_ids"`
}

func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			URLTemplate: DefaultTemplate,
			Total:       DefaultTotal,
		},
		Grid: GridConfig{
			SmallWidth:      DefaultSmallWidth,
			SmallSize:       DefaultSmallSize,
			LargeSize:       DefaultLargeSize,
			BlankFraction:   DefaultBlankFraction,
			DisplayedImages: DefaultDisplayedImages,
			ReinitOnResize:  true,
		},
		Fade: FadeConfig{
			Duration: DefaultFadeDuration,
			TickRate: DefaultTickRate,
		},
		Drag: DragConfig{
			ReleasePolicy: ReleaseRestore,
		},
		Loader: LoaderConfig{
			Timeout:   DefaultLoadTimeout,
			Workers:   DefaultWorkers,
			UserAgent: DefaultUserAgent,
		},
		LogLevel:    "info",
		SnapshotDir: DefaultSnapshotDir,
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of base. Keys the file leaves out keep base's
// values; base itself is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the values the grid core relies on. The largest grid the
// size rule can produce must not need more unique images than the catalog
// holds, otherwise sampling an unused image could never succeed.
func (c *Config) Validate() error {
	if c.Catalog.Total <= 0 {
		return fmt.Errorf("catalog.total must be positive, got %d", c.Catalog.Total)
	}
	if c.Grid.Size < 0 || c.Grid.SmallSize <= 0 || c.Grid.LargeSize <= 0 {
		return fmt.Errorf("grid sizes must be positive (size=%d small=%d large=%d)",
			c.Grid.Size, c.Grid.SmallSize, c.Grid.LargeSize)
	}
	if c.Grid.BlankFraction < 0 || c.Grid.BlankFraction > 1 {
		return fmt.Errorf("grid.blank_fraction must be within [0,1], got %g", c.Grid.BlankFraction)
	}
	if c.Grid.DisplayedImages < 0 {
		return fmt.Errorf("grid.displayed_images must not be negative, got %d", c.Grid.DisplayedImages)
	}
	if c.Fade.Duration <= 0 || c.Fade.TickRate <= 0 {
		return fmt.Errorf("fade.duration and fade.tick_rate must be positive")
	}
	switch c.Drag.ReleasePolicy {
	case ReleaseRestore, ReleaseDiscard:
	default:
		return fmt.Errorf("drag.release_policy must be %q or %q, got %q",
			ReleaseRestore, ReleaseDiscard, c.Drag.ReleasePolicy)
	}
	if capacity := c.MaxCells(); capacity > c.Catalog.Total {
		return fmt.Errorf("grid of %d cells exceeds catalog of %d images", capacity, c.Catalog.Total)
	}
	return nil
}

// GridSizeFor applies the size rule to a viewport width in pixels.
func (c *Config) GridSizeFor(width int) int {
	if c.Grid.Size > 0 {
		return c.Grid.Size
	}
	if width < c.Grid.SmallWidth {
		return c.Grid.SmallSize
	}
	return c.Grid.LargeSize
}

// MaxCells is the cell count of the largest grid the size rule can produce.
func (c *Config) MaxCells() int {
	n := c.Grid.Size
	if n == 0 {
		n = max(c.Grid.SmallSize, c.Grid.LargeSize)
	}
	return n * n
}

func (c *Config) Clone() *Config {
	out := *c
	out.Loader.FailIDs = append([]int(nil), c.Loader.FailIDs...)
	return &out
}
