package workspace

import (
	"os/exec"
	"strings"

	mvcs "github.com/Masterminds/vcs"
	"github.com/golang/depgraph/gps"
	"github.com/pkg/errors"
)

// hasUncommittedChanges reports whether the working tree at dir has local
// modifications not yet committed.
func hasUncommittedChanges(dir string) (bool, error) {
	repo, err := mvcs.NewRepo("", dir)
	if err != nil {
		return false, errors.Wrapf(err, "detecting VCS type for %s", dir)
	}
	return repo.IsDirty(), nil
}

// hasUnpushedCommits reports whether dir's current branch has commits its
// upstream remote doesn't. Masterminds/vcs has no cross-VCS primitive for
// this, so it shells out to git directly; a non-git overlay (hg/bzr/svn)
// conservatively reports false, since those VCS's commit model doesn't
// distinguish "pushed" the same way.
func hasUnpushedCommits(dir string) (bool, error) {
	cmd := exec.Command("git", "-C", dir, "rev-list", "@{u}..HEAD", "--count")
	out, err := cmd.Output()
	if err != nil {
		// no upstream configured, or not a git repo: nothing to report.
		return false, nil
	}
	return strings.TrimSpace(string(out)) != "0", nil
}

// createBranch creates and checks out a new branch in the git working tree
// at dir, failing if the branch already exists.
func createBranch(dir, branch string) error {
	check := exec.Command("git", "-C", dir, "rev-parse", "--verify", branch)
	if err := check.Run(); err == nil {
		return &gps.BranchAlreadyExistsError{Branch: branch}
	}
	cmd := exec.Command("git", "-C", dir, "checkout", "-b", branch)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "creating branch %s: %s", branch, string(out))
	}
	return nil
}
