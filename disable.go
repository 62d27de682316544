package resolver

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

func (w *Worker) usingUDP() (yes bool) {
	w.mu.RLock()
	yes = w.useUDP
	w.mu.RUnlock()
	return
}

func (w *Worker) usingIPv6() (yes bool) {
	w.mu.RLock()
	yes = w.useIPv6
	w.mu.RUnlock()
	return
}

func (w *Worker) maybeDisableIPv6(err error) (disabled bool) {
	if err != nil {
		errstr := err.Error()
		if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) ||
			strings.Contains(errstr, "network is unreachable") || strings.Contains(errstr, "no route to host") {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.useIPv6 {
				disabled = true
				w.useIPv6 = false
				var idx int
				for i := range w.rootServers {
					if w.rootServers[i].Is4() {
						w.rootServers[idx] = w.rootServers[i]
						idx++
					}
				}
				w.rootServers = w.rootServers[:idx]
			}
		}
	}
	return
}

func (w *Worker) maybeDisableUdp(err error) (disabled bool) {
	var ne net.Error
	if errors.As(err, &ne) && !ne.Timeout() {
		errstr := err.Error()
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EPROTONOSUPPORT) || strings.Contains(errstr, "network not implemented") {
			w.mu.Lock()
			defer w.mu.Unlock()
			disabled = w.useUDP
			w.useUDP = false
		}
	}
	return
}
