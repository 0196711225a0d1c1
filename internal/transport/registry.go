package transport

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	logx "tgsend/pkg/logx"
)

// Factory builds a Dialer for a registered driver.
type Factory func(log logx.Logger) (Dialer, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Factory{}
)

// Register makes a transport driver available by name. Drivers typically
// register from an init function, database/sql style. Re-registering a name
// panics: that is always a wiring bug.
func Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[name]; dup {
		panic("transport: driver registered twice: " + name)
	}
	drivers[name] = f
}

// NewDialer resolves a driver by name. The default driver is "mtproto",
// which production builds provide; this repo only ships "dryrun".
func NewDialer(name string, log logx.Logger) (Dialer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "mtproto"
	}
	driversMu.RLock()
	f, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transport driver %q not available in this build (have: %s)", name, strings.Join(driverNames(), ", "))
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return f(log)
}

func driverNames() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := make([]string, 0, len(drivers))
	for n := range drivers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
