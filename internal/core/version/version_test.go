package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_Defaults(t *testing.T) {
	bi := Info()
	assert.Equal(t, BuildInfo{Service: "quakeingest", Version: "dev", Commit: "none", Date: "unknown"}, bi)
}

func TestInfo_LinkerOverrides(t *testing.T) {
	old := version
	version = "v1.2.3"
	t.Cleanup(func() { version = old })

	assert.Equal(t, "v1.2.3", Info().Version)
}
