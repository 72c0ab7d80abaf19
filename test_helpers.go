package civers

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// testRepoFSCreate creates a new git repository with a .git directory under
// path, readable by the git binary
func testRepoFSCreate(path string) (*git.Repository, error) {
	return git.PlainInit(path, false)
}

// testRepoCommit writes a file named after msg and commits it. Without
// parents the commit extends HEAD.
func testRepoCommit(repo *git.Repository, msg string, parents ...plumbing.Hash) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	filename := "file_" + msg + ".txt"
	if err := writeFile(workTree.Filesystem, filename, "Content for "+msg); err != nil {
		return plumbing.ZeroHash, err
	}

	if _, err := workTree.Add(filename); err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit(msg, &git.CommitOptions{Author: testSignature, Parents: parents})
}

// testRepoTaggedHistory commits once, tags that commit with tag, then adds
// `after` more commits on top
func testRepoTaggedHistory(repo *git.Repository, tag string, after int) (*git.Repository, error) {
	tagCommit, err := testRepoCommit(repo, "release")
	if err != nil {
		return nil, err
	}

	if _, err := repo.CreateTag(tag, tagCommit, nil); err != nil {
		return nil, err
	}

	for i := 0; i < after; i++ {
		if _, err := testRepoCommit(repo, "change-"+string(rune('a'+i))); err != nil {
			return nil, err
		}
	}

	return repo, nil
}

// testRepoMergedHistory builds a history whose HEAD merges a side branch:
//
//	c0 (v1.0.0) - m1 - m2 - m3 - merge
//	  \                          /
//	   s1 (v2.0.0) --------------
//
// v2.0.0 is four commits from HEAD and v1.0.0 is five.
func testRepoMergedHistory(repo *git.Repository) (*git.Repository, error) {
	base, err := testRepoCommit(repo, "base")
	if err != nil {
		return nil, err
	}
	if _, err := repo.CreateTag("v1.0.0", base, nil); err != nil {
		return nil, err
	}

	side, err := testRepoCommit(repo, "side", base)
	if err != nil {
		return nil, err
	}
	if _, err := repo.CreateTag("v2.0.0", side, nil); err != nil {
		return nil, err
	}

	mainline, err := testRepoCommit(repo, "main-1", base)
	if err != nil {
		return nil, err
	}
	for _, msg := range []string{"main-2", "main-3"} {
		if mainline, err = testRepoCommit(repo, msg); err != nil {
			return nil, err
		}
	}

	if _, err := testRepoCommit(repo, "merge", mainline, side); err != nil {
		return nil, err
	}
	return repo, nil
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}
