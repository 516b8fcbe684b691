package decaymap

import (
	"testing"
	"time"
)

func TestImpl(t *testing.T) {
	dm := New[string, int]()

	dm.Set("answer", 42, 5*time.Minute)

	if val, ok := dm.Get("answer"); !ok || val != 42 {
		t.Errorf("wanted 42, true; got: %d, %v", val, ok)
	}

	if _, ok := dm.Get("question"); ok {
		t.Error("wanted question to not exist, but it does")
	}

	if !dm.Delete("answer") {
		t.Error("answer was set but Delete returned false")
	}

	if dm.Delete("answer") {
		t.Error("answer was already deleted but Delete returned true")
	}
}

func TestExpiry(t *testing.T) {
	dm := New[string, int]()

	dm.Set("fleeting", 1, 10*time.Millisecond)
	time.Sleep(15 * time.Millisecond)

	if _, ok := dm.Get("fleeting"); ok {
		t.Error("wanted fleeting to be expired, but it is not")
	}

	dm.Set("fleeting", 1, 10*time.Millisecond)
	dm.Set("lasting", 2, 5*time.Minute)
	time.Sleep(15 * time.Millisecond)

	dm.Cleanup()

	if dm.Len() != 1 {
		t.Errorf("wanted 1 entry after cleanup, got: %d", dm.Len())
	}

	if _, ok := dm.Get("lasting"); !ok {
		t.Error("wanted lasting to survive cleanup, but it did not")
	}
}
