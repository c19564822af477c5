package images

import (
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go4.org/unsafe/assume-no-moving-gc panics in init on runtimes newer than
// its release knows about. Builds from 20231121 on accept every go1.2x.
const movingGCMinVersion = "20231121144256"

func TestTensorRuntimeSupported(t *testing.T) {
	// Reaching this line means package init, and with it the tensor
	// dependency chain, ran on this runtime without an env override.
	assert.NotEmpty(t, RGBTensor(NewRGB(1, 1)).Shape())
	assert.Empty(t, os.Getenv("ASSUME_NO_MOVING_GC_UNSAFE_RISK_IT_WITH"), "run without the override")

	data, err := os.ReadFile("../go.mod")
	require.NoError(t, err)

	var goVersion, pin string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		switch {
		case len(fields) >= 2 && fields[0] == "go":
			goVersion = fields[1]
		case len(fields) >= 2 && fields[0] == "go4.org/unsafe/assume-no-moving-gc":
			pin = fields[1]
		}
	}
	require.NotEmpty(t, goVersion)
	require.NotEmpty(t, pin, "go.mod should pin assume-no-moving-gc")

	parts := strings.Split(pin, "-")
	require.Len(t, parts, 3, "pseudo-version %s", pin)
	assert.GreaterOrEqual(t, parts[1], movingGCMinVersion, "pin %s predates go%s support", pin, goVersion)
	t.Logf("runtime %s, module go %s, pin %s", runtime.Version(), goVersion, pin)
}
