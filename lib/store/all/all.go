// Package all is a meta-package that imports all store implementations so
// that one blank import registers every backend.
package all

import (
	_ "github.com/notegate/notegate/lib/store/bbolt"
	_ "github.com/notegate/notegate/lib/store/memory"
	_ "github.com/notegate/notegate/lib/store/valkey"
)
