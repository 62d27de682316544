package resolver

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"
)

// OrderRoots sorts the root server list by their current latency and removes those that don't respond within cutoff.
func (w *Worker) OrderRoots(ctx context.Context, cutoff time.Duration) {
	if _, ok := ctx.Deadline(); !ok {
		newctx, cancel := context.WithTimeout(ctx, cutoff*2)
		defer cancel()
		ctx = newctx
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var l []*rootRtt
	var wg sync.WaitGroup
	for _, addr := range w.rootServers {
		rt := &rootRtt{addr: addr}
		l = append(l, rt)
		wg.Add(1)
		go timeRoot(ctx, w, &wg, rt)
	}
	wg.Wait()
	sort.Slice(l, func(i, j int) bool { return l[i].rtt < l[j].rtt })
	var newRootServers []netip.Addr
	useIPv4 := false
	useIPv6 := false
	for _, rt := range l {
		if rt.rtt <= cutoff {
			useIPv4 = useIPv4 || rt.addr.Is4()
			useIPv6 = useIPv6 || rt.addr.Is6()
			newRootServers = append(newRootServers, rt.addr)
		}
	}
	if len(newRootServers) > 0 {
		w.rootServers = newRootServers
		w.useIPv4 = useIPv4
		w.useIPv6 = useIPv6
	}
}
