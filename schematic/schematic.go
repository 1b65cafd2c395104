// Package schematic composes the editing packages into setup steps that
// run against a project tree.
package schematic

import (
	"context"
	"fmt"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mustng65/angular-starter-schematic/filetree"
	"github.com/mustng65/angular-starter-schematic/pkgjson"
	"github.com/mustng65/angular-starter-schematic/recipe"
	"github.com/mustng65/angular-starter-schematic/registry"
	"github.com/mustng65/angular-starter-schematic/symbol"
	"github.com/mustng65/angular-starter-schematic/tmpl"
	"github.com/mustng65/angular-starter-schematic/workspace"
)

// Rule is one step of a run.
type Rule func(ctx context.Context, c *Context) error

// Chain runs rules in order, stopping at the first error.
func Chain(rules ...Rule) Rule {
	return func(ctx context.Context, c *Context) error {
		for _, r := range rules {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}
}

// Noop does nothing.
func Noop() Rule {
	return func(context.Context, *Context) error { return nil }
}

// When runs then only if cond holds at the time the rule runs.
func When(cond func(c *Context) bool, then Rule) Rule {
	return func(ctx context.Context, c *Context) error {
		if !cond(c) {
			return nil
		}
		return then(ctx, c)
	}
}

// Options configures a Context.
type Options struct {
	Project   string
	Recipe    *recipe.Recipe
	Registry  *registry.Client // nil uses default versions
	External  External         // nil uses Builtin
	Templates filetree.Source  // nil uses the embedded template sets
	Frontend  symbol.Frontend  // nil uses the tree-sitter parser
	Indent    int              // package manifest key column
	Log       *zap.Logger
}

// Context carries the state shared by the rules of one run.
type Context struct {
	Host      filetree.Host
	RunID     string
	Project   string // requested project; empty selects the default
	Workspace workspace.Context
	Recipe    *recipe.Recipe
	Inserter  *symbol.Inserter
	Manifest  *pkgjson.Manifest
	Registry  *registry.Client
	External  External
	Templates filetree.Source
	Log       *zap.Logger

	resolved bool
}

// NewContext prepares a run against host.
func NewContext(host filetree.Host, opts Options) (*Context, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run", runID))

	rec := opts.Recipe
	if rec == nil {
		rec = recipe.Default()
	}
	templates := opts.Templates
	if templates == nil {
		var err error
		if templates, err = EmbeddedTemplates(); err != nil {
			return nil, err
		}
	}
	external := opts.External
	if external == nil {
		external = Builtin{}
	}

	return &Context{
		Host:      host,
		RunID:     runID,
		Project:   opts.Project,
		Recipe:    rec,
		Inserter:  symbol.NewInserter(opts.Frontend, log),
		Manifest:  pkgjson.New(host, opts.Indent, log),
		Registry:  opts.Registry,
		External:  external,
		Templates: templates,
		Log:       log,
	}, nil
}

// SourcePath joins elem onto the project's source directory.
func (c *Context) SourcePath(elem ...string) string {
	return filetree.Normalize(path.Join(append([]string{c.Workspace.SourcePath}, elem...)...))
}

// SetupOptions resolves the target project once per run: the requested
// project, else the default, else the first declared.
func SetupOptions() Rule {
	return func(_ context.Context, c *Context) error {
		if c.resolved {
			return nil
		}
		ws, err := workspace.ResolveContext(c.Host, c.Project)
		if err != nil {
			return fmt.Errorf("resolving project: %w", err)
		}
		c.Workspace = ws
		c.resolved = true
		c.Log.Debug("project resolved",
			zap.String("project", ws.ProjectName),
			zap.String("prefix", ws.Prefix),
			zap.String("path", ws.SourcePath))
		return nil
	}
}

// MergeTemplates renders the template set named set into the project's
// source directory under the recipe's template policy.
func MergeTemplates(set string) Rule {
	return Chain(SetupOptions(), func(_ context.Context, c *Context) error {
		policy, err := tmpl.ParsePolicy(c.Recipe.Templates.Policy)
		if err != nil {
			return err
		}
		res, err := tmpl.MergeTree(c.Host, c.Templates, tmpl.Options{
			Root:        path.Join(set, "src"),
			Destination: c.Workspace.SourcePath,
			Variables: tmpl.Variables{
				"project": c.Workspace.ProjectName,
				"prefix":  c.Workspace.Prefix,
				"path":    c.Workspace.SourcePath,
			},
			Policy:  policy,
			Include: c.Recipe.Templates.Include,
			Exclude: c.Recipe.Templates.Exclude,
			Log:     c.Log,
		})
		if err != nil {
			return fmt.Errorf("merging %s templates: %w", set, err)
		}
		c.Log.Info("templates merged",
			zap.String("set", set),
			zap.Int("created", res.Stats.Created),
			zap.Int("overwritten", res.Stats.Overwritten),
			zap.Int("unchanged", res.Stats.Unchanged),
			zap.Int("skipped", res.Stats.Skipped))
		return nil
	})
}

// Run executes rule and logs the outcome.
func Run(ctx context.Context, c *Context, name string, rule Rule) error {
	c.Log.Info("running", zap.String("step", name))
	if err := rule(ctx, c); err != nil {
		c.Log.Error("step failed", zap.String("step", name), zap.Error(err))
		return err
	}
	c.Log.Info("done", zap.String("step", name))
	return nil
}
