package commands

import (
	"fmt"

	"github.com/busybox42/relaycheck/internal/config"
	"github.com/busybox42/relaycheck/internal/dnsbl"
	"github.com/busybox42/relaycheck/internal/prefs"
)

// components holds the wired-up checker stack shared by the check, server
// and blocklist commands.
type components struct {
	store    prefs.Store
	cache    *dnsbl.Cache
	registry *dnsbl.Registry
	checker  *dnsbl.Checker
}

func buildComponents(cfg *config.Config) (*components, error) {
	store, err := prefs.Factory(cfg.Prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference store: %w", err)
	}

	cache := dnsbl.NewCache(cfg.CacheTTL())
	registry := dnsbl.NewRegistry(store, cache, logger)

	var resolver dnsbl.Resolver
	if len(cfg.DNS.Servers) > 0 {
		resolver = dnsbl.NewDNSResolver(dnsbl.DNSResolverOptions{
			Servers: cfg.DNS.Servers,
			Timeout: cfg.DNSTimeout(),
			Retries: cfg.DNS.Retries,
		})
	} else {
		resolver = dnsbl.SystemResolver()
	}
	if cfg.DNS.Breaker {
		resolver = dnsbl.NewBreakerResolver(resolver, logger)
	}

	return &components{
		store:    store,
		cache:    cache,
		registry: registry,
		checker:  dnsbl.NewChecker(registry, cache, resolver, logger),
	}, nil
}

func (c *components) Close() error {
	return c.store.Close()
}
