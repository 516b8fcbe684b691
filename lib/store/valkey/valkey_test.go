package valkey

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/notegate/notegate/lib/store/storetest"
)

// TestImpl needs a running Valkey or Redis instance, e.g.:
//
//	docker run --rm -p 6379:6379 valkey/valkey:8
//	VALKEY_URL=redis://localhost:6379/0 go test ./lib/store/valkey
func TestImpl(t *testing.T) {
	url := os.Getenv("VALKEY_URL")
	if url == "" {
		t.Skip("set VALKEY_URL to run this test")
	}

	data, err := json.Marshal(Config{URL: url})
	if err != nil {
		t.Fatal(err)
	}

	storetest.Common(t, Factory{}, json.RawMessage(data))
}

func TestConfigValid(t *testing.T) {
	for _, tt := range []struct {
		name string
		cfg  Config
		err  error
	}{
		{
			name: "missing URL",
			cfg:  Config{},
			err:  ErrNoURL,
		},
		{
			name: "unparseable URL",
			cfg:  Config{URL: "://not-a-url"},
			err:  ErrBadURL,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Valid(); !errors.Is(err, tt.err) {
				t.Logf("want: %v", tt.err)
				t.Logf("got:  %v", err)
				t.Error("wrong error")
			}
		})
	}
}
