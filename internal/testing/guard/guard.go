// Package guard flips the runtime into test mode before any test in the
// importing package runs. Blank-import it from tests that exercise the HTTP
// stack so rate limiting stays out of the way.
package guard

import (
	"os"
	"sync"

	"github.com/glowline/glowline-backend/internal/app"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("GLOWLINE_TEST_MODE") == "" {
			_ = os.Setenv("GLOWLINE_TEST_MODE", "1")
		}
		app.RefreshTestMode()
	})
}
