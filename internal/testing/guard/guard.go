package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CBAMFLOW_TEST_MODE") == "" {
			_ = os.Setenv("CBAMFLOW_TEST_MODE", "1")
		}
	})
}
