package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckFixedLiteral(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	st := Check()
	if st.Status != "operational" || st.Realm != "primordia" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Timestamp.Before(before) {
		t.Fatalf("timestamp should be current, got %s", st.Timestamp)
	}
	if st.Components != nil {
		t.Fatalf("no checks should mean no components")
	}
}

func TestCheckerReportsComponents(t *testing.T) {
	c := NewChecker()
	c.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	c.Register("redis", func(context.Context) error { return nil })
	c.Register("postgres", func(context.Context) error { return errors.New("connection refused") })
	c.Register("ignored", nil)

	st := c.Check(context.Background())
	if st.Status != StatusOperational {
		t.Fatalf("status literal should not change on check failure: %s", st.Status)
	}
	if st.Components["redis"] != "ok" || st.Components["postgres"] != "connection refused" {
		t.Fatalf("unexpected components: %v", st.Components)
	}
	if _, ok := st.Components["ignored"]; ok {
		t.Fatalf("nil check should not be registered")
	}
	if !st.Timestamp.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %s", st.Timestamp)
	}
}
