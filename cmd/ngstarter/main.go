// Package main provides the ngstarter CLI.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/internal/config"
	"github.com/mustng65/angular-starter-schematic/internal/logging"
	"github.com/mustng65/angular-starter-schematic/recipe"
	"github.com/mustng65/angular-starter-schematic/registry"
	"github.com/mustng65/angular-starter-schematic/schematic"
)

// Version is the current ngstarter version
var Version = "0.3.0"

var (
	rootDir     string
	projectName string
	recipePath  string
	dryRun      bool
	verbose     bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "ngstarter",
	Short:   "ngstarter - set up an Angular workspace with material, flex-layout and a navbar",
	Version: Version,
	Long: `ngstarter edits an existing Angular workspace in place.

Every command stages its edits in memory and writes them only when the whole
command succeeded. Use --dry-run to print the edits as a diff instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.FromEnv()
		if verbose {
			cfg.Debug = true
		}
		var err error
		logger, err = logging.New(cfg.Debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Workspace directory")
	rootCmd.PersistentFlags().StringVarP(&projectName, "project", "p", "", "Project to set up (default: the workspace default)")
	rootCmd.PersistentFlags().StringVar(&recipePath, "recipe", "", "Recipe file overriding the built-in setup")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the edits instead of writing them")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(ruleCmd("starter", "Run every setup step and merge the starter templates", schematic.Starter))
	rootCmd.AddCommand(ruleCmd("material", "Add the material framework and the shared material module", schematic.Material))
	rootCmd.AddCommand(ruleCmd("flex-layout", "Add flex-layout to the app module", schematic.FlexLayout))
	rootCmd.AddCommand(ruleCmd("navbar", "Generate the navbar component", schematic.Navbar))
	rootCmd.AddCommand(templatesCmd, addImportCmd, addExportCmd, mergePropertyCmd, latestVersionCmd, recipeCmd, cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ruleCmd wraps a setup step in a command.
func ruleCmd(name, short string, rule func() schematic.Rule) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRule(cmd, name, rule(), schematic.Options{})
		},
	}
}

// runRule runs rule against the workspace and commits the result.
func runRule(cmd *cobra.Command, name string, rule schematic.Rule, opts schematic.Options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	tree := openTree()
	closeRegistry, err := prepareOptions(&opts)
	if err != nil {
		return err
	}
	defer closeRegistry()

	c, err := schematic.NewContext(tree, opts)
	if err != nil {
		return err
	}
	if err := schematic.Run(ctx, c, name, rule); err != nil {
		return err
	}
	return commit(cmd, tree)
}

// prepareOptions fills the run options from flags and configuration. The
// returned func releases the registry cache.
func prepareOptions(opts *schematic.Options) (func(), error) {
	if opts.Recipe == nil {
		r, err := recipe.LoadOrDefault(recipePath)
		if err != nil {
			return nil, err
		}
		opts.Recipe = r
	}
	opts.Project = projectName
	opts.Indent = cfg.Indent
	opts.Log = logger

	client, closeRegistry := newRegistryClient()
	opts.Registry = client
	return closeRegistry, nil
}

// newRegistryClient builds a registry client, with a cache when one is
// configured and can be opened.
func newRegistryClient() (*registry.Client, func()) {
	var cache *registry.Cache
	if cfg.CacheDir != "" {
		c, err := registry.OpenCache(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			logger.Warn("version cache unavailable", zap.String("dir", cfg.CacheDir), zap.Error(err))
		} else {
			cache = c
		}
	}
	client := registry.NewClient(cfg.Registry, cfg.Timeout, cache, logger)
	return client, func() {
		if cache != nil {
			_ = cache.Close()
		}
	}
}

func openTree() *filetree.Tree {
	return filetree.New(filetree.NewDirSource(rootDir))
}

// commit prints or writes the staged edits of tree.
func commit(cmd *cobra.Command, tree *filetree.Tree) error {
	out := cmd.OutOrStdout()
	changes := tree.Changes()
	if len(changes) == 0 {
		fmt.Fprintln(out, "Nothing to do.")
		return nil
	}
	if dryRun {
		for _, c := range changes {
			fmt.Fprint(out, unifiedDiff(c.Path, string(c.Before), string(c.After)))
		}
		fmt.Fprintf(out, "\n%d file(s) would change (dry run).\n", len(changes))
		return nil
	}
	if err := tree.Flush(rootDir); err != nil {
		return err
	}
	printSummary(out, changes)
	return nil
}
