package tmpl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mustng65/angular-starter-schematic/filetree"
)

func TestRender(t *testing.T) {
	out, err := Render("should have as title '<%= project %>' and <%=prefix%>-navbar", Variables{
		"project": "shop",
		"prefix":  "app",
	})
	require.NoError(t, err)
	assert.Equal(t, "should have as title 'shop' and app-navbar", out)
}

func TestRender_Unresolved(t *testing.T) {
	_, err := Render("<%= b %> <%= a %> <%= b %> <%= ok %>", Variables{"ok": "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedPlaceholder))
	assert.Contains(t, err.Error(), "a, b")
}

func TestRender_LeavesOtherSyntaxAlone(t *testing.T) {
	in := "<% if (x) { %> <%- raw %> `${a}`"
	out, err := Render(in, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"prefix", "project"}, Placeholders("<%= project %><%= prefix %><%= project %>"))
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"":          PolicyError,
		"strict":    PolicyError,
		"skip":      PolicySkip,
		"Overwrite": PolicyOverwrite,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePolicy("merge")
	assert.Error(t, err)
	assert.Equal(t, "overwrite", PolicyOverwrite.String())
}

func templates() filetree.MapSource {
	return filetree.MapSource{
		"files/src/app/app.component.spec.ts":            []byte("title '<%= project %>'\n"),
		"files/src/app/<%= prefix %>.config.ts.template": []byte("export const prefix = '<%= prefix %>';\n"),
		"files/src/README.md":                            []byte("readme\n"),
		"other/ignored.ts":                               []byte("x"),
	}
}

func baseOptions(policy Policy) Options {
	return Options{
		Root:        "files/src",
		Destination: "/projects/shop/src",
		Variables:   Variables{"project": "shop", "prefix": "app"},
		Policy:      policy,
	}
}

func TestMergeTree_CreatesIntoEmptyTree(t *testing.T) {
	tree := filetree.New(nil)

	res, err := MergeTree(tree, templates(), baseOptions(PolicyError))
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 3}, res.Stats)

	content, err := tree.Read("projects/shop/src/app/app.config.ts")
	require.NoError(t, err)
	assert.Equal(t, "export const prefix = 'app';\n", string(content))

	content, err = tree.Read("projects/shop/src/app/app.component.spec.ts")
	require.NoError(t, err)
	assert.Equal(t, "title 'shop'\n", string(content))
	assert.False(t, tree.Exists("projects/shop/src/ignored.ts"))

	for _, f := range res.Files {
		assert.Len(t, f.Digest, 64)
	}
}

func TestMergeTree_StrictConflictWritesNothing(t *testing.T) {
	existing := []byte("hand written\n")
	tree := filetree.New(filetree.MapSource{"projects/shop/src/README.md": existing})

	_, err := MergeTree(tree, templates(), baseOptions(PolicyError))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"projects/shop/src/README.md"}, conflict.Paths)

	content, err := tree.Read("projects/shop/src/README.md")
	require.NoError(t, err)
	assert.Equal(t, existing, content)
	assert.Empty(t, tree.Changes())
}

func TestMergeTree_OverwriteConverges(t *testing.T) {
	tree := filetree.New(filetree.MapSource{"projects/shop/src/README.md": []byte("old\n")})

	first, err := MergeTree(tree, templates(), baseOptions(PolicyOverwrite))
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 2, Overwritten: 1}, first.Stats)

	content, err := tree.Read("projects/shop/src/README.md")
	require.NoError(t, err)
	assert.Equal(t, "readme\n", string(content))
	before := tree.Changes()

	second, err := MergeTree(tree, templates(), baseOptions(PolicyOverwrite))
	require.NoError(t, err)
	assert.Equal(t, Stats{Unchanged: 3}, second.Stats)
	assert.Equal(t, before, tree.Changes())
}

func TestMergeTree_StrictIsNotIdempotent(t *testing.T) {
	tree := filetree.New(nil)
	_, err := MergeTree(tree, templates(), baseOptions(PolicyError))
	require.NoError(t, err)

	_, err = MergeTree(tree, templates(), baseOptions(PolicyError))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMergeTree_Skip(t *testing.T) {
	tree := filetree.New(filetree.MapSource{"projects/shop/src/README.md": []byte("mine\n")})

	res, err := MergeTree(tree, templates(), baseOptions(PolicySkip))
	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 2, Skipped: 1}, res.Stats)

	content, err := tree.Read("projects/shop/src/README.md")
	require.NoError(t, err)
	assert.Equal(t, "mine\n", string(content))
}

func TestMergeTree_Filters(t *testing.T) {
	tree := filetree.New(nil)
	opts := baseOptions(PolicyError)
	opts.Include = []string{"app/**"}
	opts.Exclude = []string{"**/*.spec.ts"}

	res, err := MergeTree(tree, templates(), opts)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "projects/shop/src/app/app.config.ts", res.Files[0].Path)
}

func TestMergeTree_MissingVariable(t *testing.T) {
	tree := filetree.New(nil)
	opts := baseOptions(PolicyError)
	opts.Variables = Variables{"project": "shop"}

	_, err := MergeTree(tree, templates(), opts)
	assert.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	assert.Empty(t, tree.Changes())
}

func TestMergeTree_DuplicateTargetWritesNothing(t *testing.T) {
	src := templates()
	src["files/src/app/app.config.ts"] = []byte("export const prefix = 'other';\n")

	for _, policy := range []Policy{PolicyError, PolicyOverwrite} {
		tree := filetree.New(nil)
		_, err := MergeTree(tree, src, baseOptions(policy))
		assert.ErrorIs(t, err, ErrDuplicateTarget, policy.String())
		assert.Empty(t, tree.Changes(), policy.String())
	}
}
