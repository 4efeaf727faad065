package health

import (
	"context"
	"sort"
	"time"
)

const (
	StatusOperational = "operational"
	Realm             = "primordia"
)

// Status is the payload of the health endpoint. Status and Realm are fixed;
// Components reports each registered check as "ok" or its error text.
type Status struct {
	Status     string            `json:"status"`
	Realm      string            `json:"realm"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// ComponentCheck checks one dependency.
type ComponentCheck func(ctx context.Context) error

type Checker struct {
	checks map[string]ComponentCheck
	now    func() time.Time
}

func NewChecker() *Checker {
	return &Checker{checks: make(map[string]ComponentCheck), now: time.Now}
}

// Register adds a named check. A nil check is ignored.
func (c *Checker) Register(name string, p ComponentCheck) {
	if p == nil {
		return
	}
	c.checks[name] = p
}

// Check reports the fixed status and runs every check in name order.
func (c *Checker) Check(ctx context.Context) Status {
	st := Status{Status: StatusOperational, Realm: Realm, Timestamp: c.now().UTC()}
	if len(c.checks) == 0 {
		return st
	}
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	st.Components = make(map[string]string, len(names))
	for _, name := range names {
		if err := c.checks[name](ctx); err != nil {
			st.Components[name] = err.Error()
			continue
		}
		st.Components[name] = "ok"
	}
	return st
}

// Check is the component-free status query.
func Check() Status {
	return NewChecker().Check(context.Background())
}
