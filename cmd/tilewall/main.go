package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/tilewall/internal/catalog"
	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/gui"
	"github.com/san-kum/tilewall/internal/log"
	"github.com/san-kum/tilewall/internal/script"
	"github.com/san-kum/tilewall/internal/snapshot"
	"github.com/san-kum/tilewall/internal/tui"
)

var (
	configFile    string
	preset        string
	dataDir       string
	urlTemplate   string
	total         int
	size          int
	blankFraction float64
	displayed     int
	releasePolicy string
	fadeDuration  int
	tickRate      int
	seed          int64
	offline       bool
	failIDs       []int
	workers       int
	timeout       time.Duration
	logLevel      string
	logFile       string
	// catalog listing
	limit int
	// soak
	gestures int
)

// main registers the commands and runs the terminal wall when no subcommand
// is given.
func main() {
	rootCmd := &cobra.Command{
		Use:          "tilewall",
		Short:        "drag-and-drop image wall",
		SilenceUsage: true,
		RunE:         runTUI,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path (yaml)")
	flags.StringVar(&preset, "preset", "", "use preset configuration")
	flags.StringVar(&dataDir, "data", config.DefaultSnapshotDir, "snapshot directory")
	flags.StringVar(&urlTemplate, "url-template", config.DefaultTemplate, "image url template, %d is the image id")
	flags.IntVar(&total, "total", config.DefaultTotal, "number of images in the catalog")
	flags.IntVar(&size, "size", 0, "pin the grid to size x size (0 follows the window width)")
	flags.Float64Var(&blankFraction, "blank", config.DefaultBlankFraction, "fraction of cells left blank")
	flags.IntVar(&displayed, "displayed", config.DefaultDisplayedImages, "images requested at startup")
	flags.StringVar(&releasePolicy, "release", config.ReleaseRestore, "plain click on a tile: restore or discard")
	flags.IntVar(&fadeDuration, "fade", config.DefaultFadeDuration, "fade length in ticks")
	flags.IntVar(&tickRate, "tick-rate", config.DefaultTickRate, "fade ticks per second")
	flags.Int64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	flags.BoolVar(&offline, "offline", false, "draw synthetic images instead of fetching")
	flags.IntSliceVar(&failIDs, "fail-ids", nil, "image ids whose synthetic load fails")
	flags.IntVar(&workers, "workers", config.DefaultWorkers, "concurrent image loads")
	flags.DurationVar(&timeout, "timeout", config.DefaultLoadTimeout, "per-image load timeout")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, error or off")
	flags.StringVar(&logFile, "log-file", "", "log file (the terminal ui discards logs without one)")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "run the wall in the terminal",
		RunE:  runTUI,
	}

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "run the wall in a window",
		RunE:  runGUI,
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "list image resources",
		RunE:  listCatalog,
	}
	catalogCmd.Flags().IntVar(&limit, "limit", 20, "number of entries to print (0 for all)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	replayCmd := &cobra.Command{
		Use:   "replay [scenario.yaml]",
		Short: "replay a gesture scenario headlessly",
		Args:  cobra.ExactArgs(1),
		RunE:  replayScenario,
	}

	soakCmd := &cobra.Command{
		Use:   "soak",
		Short: "play random gestures and plot the displayed count",
		RunE:  runSoak,
	}
	soakCmd.Flags().IntVar(&gestures, "gestures", 1000, "number of random gestures")

	snapshotsCmd := &cobra.Command{
		Use:   "snapshots",
		Short: "list exported snapshots",
		RunE:  listSnapshots,
	}

	configDumpCmd := &cobra.Command{
		Use:   "config-dump",
		Short: "print the effective configuration",
		RunE:  dumpConfig,
	}

	rootCmd.AddCommand(tuiCmd, guiCmd, catalogCmd, presetsCmd, replayCmd, soakCmd, snapshotsCmd, configDumpCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers defaults, the preset, the config file and finally any
// flag set on the command line.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("data") {
		cfg.SnapshotDir = dataDir
	}
	if changed("url-template") {
		cfg.Catalog.URLTemplate = urlTemplate
	}
	if changed("total") {
		cfg.Catalog.Total = total
	}
	if changed("size") {
		cfg.Grid.Size = size
	}
	if changed("blank") {
		cfg.Grid.BlankFraction = blankFraction
	}
	if changed("displayed") {
		cfg.Grid.DisplayedImages = displayed
	}
	if changed("release") {
		cfg.Drag.ReleasePolicy = releasePolicy
	}
	if changed("fade") {
		cfg.Fade.Duration = fadeDuration
	}
	if changed("tick-rate") {
		cfg.Fade.TickRate = tickRate
	}
	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("offline") {
		cfg.Loader.Offline = offline
	}
	if changed("fail-ids") {
		cfg.Loader.FailIDs = failIDs
	}
	if changed("workers") {
		cfg.Loader.Workers = workers
	}
	if changed("timeout") {
		cfg.Loader.Timeout = timeout
	}
	if changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if changed("log-file") {
		cfg.LogFile = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openLogger writes to the configured log file, or to fallback without one.
func openLogger(cfg *config.Config, fallback io.Writer) (*log.Logger, func(), error) {
	level := log.LevelFromString(cfg.LogLevel)
	if cfg.LogFile == "" {
		return log.New(fallback, level), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(f, level), func() { f.Close() }, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()
	return tui.Run(ctx, cfg, logger)
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()
	return gui.Run(ctx, cfg, logger)
}

func listCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := catalog.NewTemplate(cfg.Catalog.URLTemplate, cfg.Catalog.Total)
	if err != nil {
		return err
	}

	refs := catalog.Refs(cat)
	n := len(refs)
	if limit > 0 && limit < n {
		n = limit
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRESOURCE\tREMOTE")
	for i, ref := range refs[:n] {
		fmt.Fprintf(w, "%d\t%s\t%v\n", i, ref, ref.Remote())
	}
	w.Flush()
	if n < len(refs) {
		fmt.Printf("... %d more\n", len(refs)-n)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tBLANK\tDISPLAYED\tRELEASE\tFADE\tOFFLINE")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		gridSize := "auto"
		if cfg.Grid.Size > 0 {
			gridSize = fmt.Sprintf("%dx%d", cfg.Grid.Size, cfg.Grid.Size)
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\t%d\t%v\n",
			name, gridSize, cfg.Grid.BlankFraction, cfg.Grid.DisplayedImages,
			cfg.Drag.ReleasePolicy, cfg.Fade.Duration, cfg.Loader.Offline)
	}
	return w.Flush()
}

func replayScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	sc, err := script.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	name := sc.Name
	if name == "" {
		name = args[0]
	}
	fmt.Printf("replaying %s (%d steps)\n", name, len(sc.Steps))

	res, err := script.Run(sc, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Printf("ok: %d steps, %d images shown %v\n", res.Steps, res.Displayed, res.IDs)
	printStats(res.Stats.Swaps, res.Stats.Fills, res.Stats.Restores, res.Stats.Discards, res.Stats.LoadsFailed)
	return nil
}

func printStats(swaps, fills, restores, discards, failed int) {
	fmt.Printf("  swaps %d  fills %d  restores %d  discards %d  failed loads %d\n",
		swaps, fills, restores, discards, failed)
}

func runSoak(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := openLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	start := time.Now()
	res, err := script.Soak(cfg, gestures, logger)
	if err != nil {
		return err
	}
	fmt.Printf("%d gestures in %v, invariants held\n", res.Gestures, time.Since(start).Round(time.Millisecond))
	printStats(res.Stats.Swaps, res.Stats.Fills, res.Stats.Restores, res.Stats.Discards, res.Stats.LoadsFailed)
	fmt.Println()

	if len(res.DisplayedHistory) > 0 {
		graph := asciigraph.PlotMany([][]float64{res.DisplayedHistory, res.EmptyHistory},
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
			asciigraph.Caption("displayed (blue) and empty (red) cells per gesture"),
		)
		fmt.Println(graph)
	}
	return nil
}

func listSnapshots(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	st := snapshot.New(cfg.SnapshotDir)
	snaps, err := st.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("no snapshots")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tGRID\tSHOWN\tSEED\tFRAME")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%dx%d\t%d\t%d\t%s\n",
			s.ID, s.Timestamp.Format(time.DateTime), s.GridSize, s.GridSize, s.Displayed, s.Seed, st.FramePath(s.ID))
	}
	return w.Flush()
}

func dumpConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(strings.TrimLeft(string(data), "\n"))
	return nil
}
