package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitSHA(t *testing.T) {
	original := GitCommit
	t.Cleanup(func() { GitCommit = original })

	GitCommit = "0123456789abcdef0123456789abcdef01234567"
	assert.Equal(t, GitCommit, CommitSHA())
	assert.Equal(t, GitCommit, Info()["git_commit"])

	GitCommit = "dirty"
	assert.Equal(t, "unknown", CommitSHA())
}
