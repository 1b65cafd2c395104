package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/jsonedit"
	"github.com/mustng65/angular-starter-schematic/pkgjson"
	"github.com/mustng65/angular-starter-schematic/recipe"
	"github.com/mustng65/angular-starter-schematic/registry"
	"github.com/mustng65/angular-starter-schematic/schematic"
	"github.com/mustng65/angular-starter-schematic/symbol"
)

var (
	templatesGitRepo string
	templatesGitRef  string
	templatesGitDir  string
	templatesPolicy  string

	symbolDecorator string
	symbolField     string

	mergeFile   string
	mergeIndent int
)

var templatesCmd = &cobra.Command{
	Use:   "templates [set]",
	Short: "Merge a template set into the project's source directory",
	Long: `Render a template set and merge it into the project's source directory.

The built-in sets are "starter" (default) and "navbar". With --from-git the
sets are read from a Git repository instead; each set keeps its files under
<set>/src.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplates,
}

var addImportCmd = &cobra.Command{
	Use:   "add-import <file> <symbol> [origin]",
	Short: "Add a symbol to a module's imports and import it from origin",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAddSymbol(cmd, symbolField, args)
	},
}

var addExportCmd = &cobra.Command{
	Use:   "add-export <file> <symbol> [origin]",
	Short: "Add a symbol to a module's exports",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAddSymbol(cmd, "exports", args)
	},
}

var mergePropertyCmd = &cobra.Command{
	Use:   "merge-property <name> <json-value>",
	Short: "Merge a top-level property into a JSON file",
	Long: `Merge a top-level property into a JSON file, editing only the affected text.

An absent property is appended. When both the present value and the new value
are objects, missing keys are inserted in order and present keys are
overwritten. Any other combination is an error.`,
	Args: cobra.ExactArgs(2),
	RunE: runMergeProperty,
}

var latestVersionCmd = &cobra.Command{
	Use:   "latest-version <package> [major]",
	Short: "Look up the newest published version of a package",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runLatestVersion,
}

var recipeCmd = &cobra.Command{
	Use:   "recipe <file>",
	Short: "Write the built-in recipe to a file for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := recipe.LoadOrDefault(recipePath)
		if err != nil {
			return err
		}
		if err := r.Save(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recipe written to %s\n", args[0])
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the package version cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the cache location and size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(c *registry.Cache) error {
			n, err := c.Len()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d cached version(s)\n", cfg.CacheDir, n)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every cached version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(c *registry.Cache) error {
			if err := c.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		})
	},
}

func init() {
	templatesCmd.Flags().StringVar(&templatesGitRepo, "from-git", "", "Read template sets from this Git repository")
	templatesCmd.Flags().StringVar(&templatesGitRef, "ref", "HEAD", "Branch, tag or commit to read with --from-git")
	templatesCmd.Flags().StringVar(&templatesGitDir, "dir", "", "Directory holding the sets inside the repository")
	templatesCmd.Flags().StringVar(&templatesPolicy, "policy", "", "Conflict policy: error, skip or overwrite (default: the recipe's)")

	for _, c := range []*cobra.Command{addImportCmd, addExportCmd} {
		c.Flags().StringVar(&symbolDecorator, "decorator", "NgModule", "Decorator whose metadata is edited")
	}
	addImportCmd.Flags().StringVar(&symbolField, "field", "imports", "Metadata field to add the symbol to")

	mergePropertyCmd.Flags().StringVarP(&mergeFile, "file", "f", pkgjson.Path, "JSON file to edit")
	mergePropertyCmd.Flags().IntVar(&mergeIndent, "indent", -1, "Column of new keys (default: NGSTARTER_INDENT)")

	cacheCmd.AddCommand(cacheInfoCmd, cacheClearCmd)
}

func runTemplates(cmd *cobra.Command, args []string) error {
	set := schematic.StarterTemplates
	if len(args) == 1 {
		set = args[0]
	}

	var opts schematic.Options
	if templatesGitRepo != "" {
		src, err := filetree.OpenGitSource(templatesGitRepo, templatesGitRef, templatesGitDir)
		if err != nil {
			return err
		}
		logger.Debug("templates from git", zap.String("repo", templatesGitRepo), zap.String("commit", src.Commit))
		opts.Templates = src
	}
	if templatesPolicy != "" {
		r, err := recipe.LoadOrDefault(recipePath)
		if err != nil {
			return err
		}
		r.Templates.Policy = templatesPolicy
		opts.Recipe = r
	}
	return runRule(cmd, "templates", schematic.MergeTemplates(set), opts)
}

func runAddSymbol(cmd *cobra.Command, field string, args []string) error {
	file, name := filetree.Normalize(args[0]), args[1]
	origin := ""
	if len(args) == 3 {
		origin = args[2]
	}

	tree := openTree()
	in := symbol.NewInserter(nil, logger).WithDecorator(symbolDecorator)
	res, err := in.AddSymbol(tree, file, field, name, origin)
	if err != nil {
		return err
	}
	if !res.Changed {
		logger.Info("symbol already present", zap.String("symbol", name), zap.String("field", field))
	}
	return commit(cmd, tree)
}

func runMergeProperty(cmd *cobra.Command, args []string) error {
	var value any
	if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
		return fmt.Errorf("value must be JSON: %w", err)
	}
	indent := mergeIndent
	if indent < 0 {
		indent = cfg.Indent
	}

	tree := openTree()
	res, err := jsonedit.NewMerger(logger).MergeProperty(tree, filetree.Normalize(mergeFile), args[0], value, indent)
	if err != nil {
		return err
	}
	logger.Debug("property merged",
		zap.Bool("appended", res.Appended),
		zap.Strings("created", res.Created),
		zap.Strings("overwritten", res.Overwritten))
	return commit(cmd, tree)
}

func runLatestVersion(cmd *cobra.Command, args []string) error {
	major := ""
	if len(args) == 2 {
		major = args[1]
	}
	client, closeRegistry := newRegistryClient()
	defer closeRegistry()

	pkg := client.Lookup(cmd.Context(), args[0], major, "")
	note := ""
	switch {
	case pkg.Fallback:
		note = " (default)"
	case pkg.Cached:
		note = " (cached)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s@%s%s\n", pkg.Name, pkg.Version, note)
	return nil
}

var errCacheDisabled = errors.New("version cache is disabled (NGSTARTER_CACHE_DIR=off)")

func withCache(fn func(*registry.Cache) error) error {
	if cfg.CacheDir == "" {
		return errCacheDisabled
	}
	c, err := registry.OpenCache(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
