package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Info{Version: "v1.2.3", Commit: "0123456789abcdef", BuildTime: "2026-01-02T03:04:05Z"}
	assert.Equal(t, "0123456", info.Short())
	assert.Equal(t, "taxa v1.2.3 (commit 0123456, built 2026-01-02T03:04:05Z)", info.String())

	assert.Equal(t, "abc", Info{Commit: "abc"}.Short())
	assert.NotEmpty(t, Get().GoVersion)
}
