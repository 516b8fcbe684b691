package challenge

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sort"
	"sync"

	"github.com/notegate/notegate/lib/music"
	"github.com/notegate/notegate/lib/synth"
)

var (
	registry map[string]Impl = map[string]Impl{}
	regLock  sync.RWMutex
)

func Register(name string, impl Impl) {
	regLock.Lock()
	defer regLock.Unlock()

	registry[name] = impl
}

func Get(name string) (Impl, bool) {
	regLock.RLock()
	defer regLock.RUnlock()
	result, ok := registry[name]
	return result, ok
}

func Methods() []string {
	regLock.RLock()
	defer regLock.RUnlock()
	var result []string
	for method := range registry {
		result = append(result, method)
	}
	sort.Strings(result)
	return result
}

// IssueInput carries everything a delivery variant needs to hand a challenge
// to the client.
type IssueInput struct {
	Solution *Solution
	Scale    *music.Scale
	Params   synth.Params

	// NewNoise returns the random source for the masking noise overlay. A
	// factory rather than a shared source so that concurrent deliveries do
	// not race on one generator, and so tests can inject a fixed seed.
	NewNoise func() *rand.Rand
}

// Impl is one challenge delivery variant. Variants differ only in how the
// melody reaches the client: as a rendered waveform or as raw note data for
// client-side synthesis. They never mix within one deployment.
type Impl interface {
	// Setup registers any additional routes with the Impl for assets or API
	// routes.
	Setup(mux *http.ServeMux)

	// Deliver writes the challenge response for the stored solution.
	Deliver(w http.ResponseWriter, r *http.Request, lg *slog.Logger, in *IssueInput) error
}
