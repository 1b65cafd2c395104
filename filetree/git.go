package filetree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitSource is a snapshot of the files of a Git commit, optionally limited to
// a subdirectory. Contents are read eagerly when the source is opened.
type GitSource struct {
	Commit string
	files  MapSource
}

// OpenGitSource reads the files below dir at ref (branch, tag or commit hash)
// from the repository at repoPath.
func OpenGitSource(repoPath, ref, dir string) (*GitSource, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	commit, err := resolveRef(repo, ref)
	if err != nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}

	dir = Normalize(dir)
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}

	files := make(MapSource)
	err = tree.Files().ForEach(func(f *object.File) error {
		if !strings.HasPrefix(f.Name, prefix) {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading file %s: %w", f.Name, err)
		}
		files[strings.TrimPrefix(f.Name, prefix)] = []byte(content)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &GitSource{Commit: commit.Hash.String(), files: files}, nil
}

// resolveRef resolves a branch name, tag, or commit hash to a commit.
func resolveRef(repo *git.Repository, refName string) (*object.Commit, error) {
	if refName == "" || refName == "HEAD" {
		head, err := repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolving HEAD: %w", err)
		}
		return repo.CommitObject(head.Hash())
	}

	if ref, err := repo.Reference(plumbing.NewBranchReferenceName(refName), true); err == nil {
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, fmt.Errorf("getting commit: %w", err)
		}
		return commit, nil
	}

	if ref, err := repo.Reference(plumbing.NewTagReferenceName(refName), true); err == nil {
		// Annotated tags point at a tag object rather than the commit.
		if tag, err := repo.TagObject(ref.Hash()); err == nil {
			return tag.Commit()
		}
		commit, err := repo.CommitObject(ref.Hash())
		if err != nil {
			return nil, fmt.Errorf("getting commit: %w", err)
		}
		return commit, nil
	}

	commit, err := repo.CommitObject(plumbing.NewHash(refName))
	if err != nil {
		return nil, fmt.Errorf("resolving ref %q: not a branch, tag, or commit hash", refName)
	}
	return commit, nil
}

// ReadFile returns the content of path at the snapshot commit.
func (g *GitSource) ReadFile(path string) ([]byte, error) {
	return g.files.ReadFile(path)
}

// Files returns the snapshot's file paths, sorted.
func (g *GitSource) Files() ([]string, error) {
	files, err := g.files.Files()
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
