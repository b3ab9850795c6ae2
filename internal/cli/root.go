package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/display"
	"github.com/shayne-snap/llmvram/internal/fetch"
	"github.com/shayne-snap/llmvram/internal/hardware"
	"github.com/shayne-snap/llmvram/internal/logging"
	"github.com/shayne-snap/llmvram/internal/tui"
)

// Version is set by main from ldflags or "dev". Used for --version / -v.
var Version string

// options holds the persistent flags and the loaded settings for one command tree.
type options struct {
	gpuMemory  string
	lang       string
	json       bool
	families   []string
	quant      string
	sort       string
	desc       bool
	runnable   bool
	limit      uint
	configPath string
	catalogURL string
	logLevel   string
	cli        bool

	env env

	detect func() (*hardware.SystemSpecs, error)
	loadDB func(ctx context.Context) (*catalog.DB, error)
	runTUI func(app *tui.App) error
}

func defaultOptions() *options {
	o := &options{
		detect: hardware.Detect,
		runTUI: tui.Run,
	}
	o.loadDB = func(ctx context.Context) (*catalog.DB, error) {
		if o.catalogURL != "" {
			return catalog.Load(ctx, fetch.HTTPSource{BaseURL: o.catalogURL})
		}
		return catalog.NewDB(ctx)
	}
	return o
}

// Execute runs the root command. Returns error for exit code handling.
func Execute() error {
	if Version == "" {
		Version = "dev"
	}
	fetch.UserAgent = "llmvram/" + Version
	return newRootCmd(defaultOptions()).Execute()
}

func newRootCmd(o *options) *cobra.Command {
	version := Version
	if version == "" {
		version = "dev"
	}
	rootCmd := &cobra.Command{
		Use:     "llmvram",
		Short:   "Estimate LLM VRAM needs and whether one GPU can run them",
		Long:    "llmvram estimates how much GPU memory each quantized model in the catalog needs and whether a single GPU of the given size can run it (Perfect Run, Full Load or Cannot Run). TUI by default; use --cli for table output, or serve the same data over HTTP.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefault(cmd, o)
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(o.logLevel, true)
			return o.loadSettings()
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	f := rootCmd.PersistentFlags()
	f.StringVarP(&o.gpuMemory, "gpu-memory", "g", "", `GPU memory per card in GB, or "auto" to use the largest detected card (default from settings, 24)`)
	f.StringVar(&o.lang, "lang", "", "Display language: zh or en (default from settings)")
	f.BoolVar(&o.json, "json", false, "Output results as JSON")
	f.StringArrayVarP(&o.families, "family", "f", nil, "Model family to include (repeatable; default all)")
	f.StringVarP(&o.quant, "quant", "q", "", `Quantization to show, e.g. Q4_K_M, or "default" for each family's default tags`)
	f.StringVarP(&o.sort, "sort", "s", "", "Sort column: name, arch, params, size, quant, vram, gpus, status")
	f.BoolVar(&o.desc, "desc", false, "Sort descending")
	f.BoolVar(&o.runnable, "runnable", false, "Show only models a single GPU can run (Perfect Run or Full Load)")
	f.UintVarP(&o.limit, "limit", "n", 0, "Limit number of results (0 = no limit)")
	f.StringVar(&o.configPath, "config", "", "Settings file (.yaml, .toml or .json; default $LLMVRAM_CONFIG or the user config dir)")
	f.StringVar(&o.catalogURL, "catalog-url", "", "Read the catalog from this base URL instead of the built-in list and user cache")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error, off (default $LLMVRAM_LOG_LEVEL or warn)")
	rootCmd.Flags().BoolVar(&o.cli, "cli", false, "Use classic CLI table output instead of TUI")

	rootCmd.AddCommand(
		newTableCmd(o),
		newEstimateCmd(o),
		newListCmd(o),
		newQuantsCmd(o),
		newInfoCmd(o),
		newSystemCmd(o),
		newConfigCmd(o),
		newUpdateListCmd(o),
		newGenerateCmd(o),
		newServeCmd(o),
	)
	return rootCmd
}

func runDefault(cmd *cobra.Command, o *options) error {
	if o.cli || o.json {
		return runTable(cmd, o)
	}
	db, err := o.loadDB(cmd.Context())
	if err != nil {
		return err
	}
	families, err := db.ResolveFamilies(o.families)
	if err != nil {
		return err
	}
	quant, err := o.resolveQuant(catalog.QuantOptions(db.Details(families...), o.language()))
	if err != nil {
		return err
	}
	s := o.env.settings
	if o.gpuMemory != "" {
		if s.GPUMemory, err = o.gpuMemoryGB(); err != nil {
			return err
		}
	}
	s.Language = o.language().String()
	specs, err := o.detect()
	if err != nil {
		log.Warn().Err(err).Msg("hardware detection failed")
		specs = nil
	}
	if len(o.families) == 0 {
		families = nil
	}
	return o.runTUI(tui.NewApp(db, specs, s, o.env.settingsPath, families, quant))
}

// runTable prints the VRAM table for the selected families and quantization.
func runTable(cmd *cobra.Command, o *options) error {
	db, err := o.loadDB(cmd.Context())
	if err != nil {
		return err
	}
	res, err := o.buildTable(db)
	if err != nil {
		return err
	}
	display.Table(cmd.OutOrStdout(), res.rows, res.gpuMemory, res.quant, res.lang, o.json)
	return nil
}
