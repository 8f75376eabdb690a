package dnsbl

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/busybox42/relaycheck/internal/message"
)

// lookupOutcome is the closed result set of a single protocol lookup.
// lookupFailed carries its reason in a separate error value and collapses
// to "not listed" at the list-evaluation boundary: a resolver malfunction
// must never classify a message as spam.
type lookupOutcome int

const (
	lookupNotListed lookupOutcome = iota
	lookupListed
	lookupFailed
)

// Checker evaluates relay hosts against the enabled blocklists. It is safe
// for concurrent use; the verdict cache is the only mutable shared state.
// Lookups block for the duration of the resolver's timeout; callers that
// need bounded latency wrap ctx with their own deadline.
type Checker struct {
	registry *Registry
	cache    *Cache
	resolver Resolver
	logger   *slog.Logger
	group    singleflight.Group
}

// NewChecker creates a checker over the given registry, cache and resolver
func NewChecker(registry *Registry, cache *Cache, resolver Resolver, logger *slog.Logger) *Checker {
	return &Checker{
		registry: registry,
		cache:    cache,
		resolver: resolver,
		logger:   logger,
	}
}

// CheckReceived extracts the most recent relay host from the Received
// trace and checks its reputation. known is false when no hostname could
// be extracted; no network activity happens in that case.
func (c *Checker) CheckReceived(ctx context.Context, received []string) (junk bool, known bool) {
	host, ok := message.RelayHost(received)
	if !ok {
		checksTotal.WithLabelValues("unknown").Inc()
		return false, false
	}

	junk = c.IsJunkHost(ctx, host)
	if junk {
		checksTotal.WithLabelValues("junk").Inc()
	} else {
		checksTotal.WithLabelValues("clean").Inc()
	}
	return junk, true
}

// IsJunkHost reports whether any enabled blocklist lists the host. The
// aggregate verdict is cached per hostname; concurrent checks of the same
// hostname share a single evaluation.
func (c *Checker) IsJunkHost(ctx context.Context, host string) bool {
	host = strings.ToLower(host)

	if junk, ok := c.cache.Get(host); ok {
		cacheHitsTotal.Inc()
		return junk
	}

	verdict, _, _ := c.group.Do(host, func() (interface{}, error) {
		// a concurrent flight may have filled the cache while we queued
		if junk, ok := c.cache.Get(host); ok {
			cacheHitsTotal.Inc()
			return junk, nil
		}

		junk := false
		for _, list := range c.registry.Lists() {
			if !c.registry.IsEnabled(ctx, list) {
				continue
			}
			if c.listJunk(ctx, host, list) {
				junk = true
				break
			}
		}

		c.cache.Put(host, junk)
		return junk, nil
	})

	return verdict.(bool)
}

// listJunk evaluates one blocklist for one host. Every failure is contained
// here: a lookup or resolution error counts as "not listed" for that unit
// and evaluation moves on.
func (c *Checker) listJunk(ctx context.Context, host string, list *List) bool {
	literal := strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]")
	if literal {
		host = host[1 : len(host)-1]
	}

	switch {
	case list.Numeric:
		addrs, err := c.resolver.LookupHost(ctx, host)
		if err != nil {
			c.logger.Warn("failed to resolve relay host",
				"host", host,
				"list", list.Name,
				"error", err,
			)
			return false
		}

		for _, addr := range addrs {
			ip := net.ParseIP(addr)
			if ip == nil {
				continue
			}
			if isExemptAddr(ip) {
				c.logger.Debug("skipping local address", "host", host, "addr", addr)
				continue
			}

			lookup := reverseQueryName(ip, list.Zone)
			outcome, err := c.queryListed(ctx, lookup, list.Responses)
			switch outcome {
			case lookupListed:
				lookupsTotal.WithLabelValues(list.Zone, "listed").Inc()
				c.logger.Info("relay host listed",
					"host", host,
					"addr", addr,
					"list", list.Name,
				)
				return true
			case lookupFailed:
				lookupsTotal.WithLabelValues(list.Zone, "failed").Inc()
				c.logger.Warn("blocklist lookup failed",
					"lookup", lookup,
					"list", list.Name,
					"error", err,
				)
			default:
				lookupsTotal.WithLabelValues(list.Zone, "clean").Inc()
			}
		}

	case !literal:
		lookup := host + "." + list.Zone
		outcome, err := c.queryListed(ctx, lookup, list.Responses)
		switch outcome {
		case lookupListed:
			lookupsTotal.WithLabelValues(list.Zone, "listed").Inc()
			c.logger.Info("relay host listed", "host", host, "list", list.Name)
			return true
		case lookupFailed:
			lookupsTotal.WithLabelValues(list.Zone, "failed").Inc()
			c.logger.Warn("blocklist lookup failed",
				"lookup", lookup,
				"list", list.Name,
				"error", err,
			)
		default:
			lookupsTotal.WithLabelValues(list.Zone, "clean").Inc()
		}

	default:
		// a domain-suffix list cannot be queried with an address literal
	}

	return false
}

// queryListed performs one protocol lookup. A not-found answer is the
// canonical DNSBL "absent" response, not a fault.
func (c *Checker) queryListed(ctx context.Context, lookup string, responses []net.IP) (lookupOutcome, error) {
	addrs, err := c.resolver.LookupHost(ctx, lookup)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return lookupNotListed, nil
		}
		return lookupFailed, err
	}

	if len(responses) == 0 {
		// no signal set configured: any answer means listed
		return lookupListed, nil
	}

	for _, addr := range addrs {
		ip := net.ParseIP(addr)
		if ip == nil {
			continue
		}
		for _, response := range responses {
			if response.Equal(ip) {
				return lookupListed, nil
			}
		}
	}

	return lookupNotListed, nil
}
