// Package dnsbl checks mail relay hosts against DNS-based blocklists using
// the reverse-octet query protocol. Verdicts are aggregated across the
// configured lists and cached per hostname.
package dnsbl

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/busybox42/relaycheck/internal/prefs"
)

// prefix for enablement override keys in the preference store
const prefKeyPrefix = "blocklist."

// List describes a single blocklist provider. Numeric lists are queried by
// reversing the resolved IP's octets (IPv4) or nibbles (IPv6) and appending
// Zone; non-numeric lists are queried as "<hostname>.<zone>" directly.
type List struct {
	ID             int
	Name           string
	Zone           string
	Numeric        bool
	DefaultEnabled bool

	// Responses holds the DNS answers that signify a listing. An empty set
	// means any successful resolution counts as listed.
	Responses []net.IP
}

// Registry holds the fixed, ordered set of blocklists and resolves their
// effective enablement against the preference store. The list set is
// immutable after construction; only enablement overrides change, and every
// such change clears the verdict cache because cached verdicts are
// aggregates over the enabled set.
type Registry struct {
	lists  []*List
	store  prefs.Store
	cache  *Cache
	logger *slog.Logger
}

type listSpec struct {
	defaultEnabled bool
	name           string
	zone           string
	numeric        bool
	responses      []string
}

// Built-in providers. Response addresses are the published listing codes of
// each zone; codes left out (e.g. Spamhaus PBL 127.0.0.10/.11) describe
// policy ranges rather than spam sources and are deliberately not matched.
var builtinLists = []listSpec{
	// https://www.spamhaus.org/zen/
	{true, "Spamhaus/zen", "zen.spamhaus.org", true, []string{
		"127.0.0.2", // SBL
		"127.0.0.3", // SBL CSS
		"127.0.0.4", // XBL CBL
		"127.0.0.9", // SBL DROP/EDROP
	}},

	// https://www.spamhaus.org/dbl/
	{false, "Spamhaus/DBL", "dbl.spamhaus.org", false, []string{
		"127.0.1.2",   // spam domain
		"127.0.1.4",   // phish domain
		"127.0.1.5",   // malware domain
		"127.0.1.6",   // botnet C&C domain
		"127.0.1.102", // abused legit spam
		"127.0.1.103", // abused spammed redirector domain
		"127.0.1.104", // abused legit phish
		"127.0.1.105", // abused legit malware
		"127.0.1.106", // abused legit botnet C&C
	}},

	// https://www.spamcop.net/fom-serve/cache/291.html
	{true, "Spamcop", "bl.spamcop.net", true, []string{
		"127.0.0.2",
	}},

	// https://www.barracudacentral.org/rbl/how-to-use
	{false, "Barracuda", "b.barracudacentral.org", true, []string{
		"127.0.0.2",
	}},
}

// NewRegistry builds the registry with the built-in blocklists. Enablement
// overrides are read from store; every enablement change clears cache.
func NewRegistry(store prefs.Store, cache *Cache, logger *slog.Logger) *Registry {
	r := &Registry{
		store:  store,
		cache:  cache,
		logger: logger,
	}

	for i, spec := range builtinLists {
		list := &List{
			ID:             i + 1,
			Name:           spec.name,
			Zone:           spec.zone,
			Numeric:        spec.numeric,
			DefaultEnabled: spec.defaultEnabled,
		}
		for _, response := range spec.responses {
			ip := net.ParseIP(response)
			if ip == nil {
				// degrade to "any answer means listed" rather than failing
				logger.Warn("invalid blocklist response address",
					"list", spec.name,
					"address", response,
				)
				continue
			}
			list.Responses = append(list.Responses, ip)
		}
		r.lists = append(r.lists, list)
	}

	return r
}

// Lists returns the registered blocklists in registration order
func (r *Registry) Lists() []*List {
	return r.lists
}

// Find returns the blocklist with the given name, or nil
func (r *Registry) Find(name string) *List {
	for _, list := range r.lists {
		if list.Name == name {
			return list
		}
	}
	return nil
}

// IsEnabled reports whether a blocklist is effectively enabled: the stored
// override when one exists, the list's default otherwise. Store errors fall
// back to the default.
func (r *Registry) IsEnabled(ctx context.Context, list *List) bool {
	value, err := r.store.GetBool(ctx, prefKeyPrefix+list.Name)
	if err != nil {
		if !errors.Is(err, prefs.ErrNotFound) {
			r.logger.Warn("failed to read blocklist preference",
				"list", list.Name,
				"error", err,
			)
		}
		return list.DefaultEnabled
	}
	return value
}

// SetEnabled overrides a blocklist's enablement. Setting a list back to its
// default removes the override instead of storing it. The verdict cache is
// cleared unconditionally: cached verdicts are aggregates over whichever
// lists were enabled at evaluation time.
func (r *Registry) SetEnabled(ctx context.Context, list *List, enabled bool) error {
	defer r.cache.Clear()

	key := prefKeyPrefix + list.Name
	if enabled == list.DefaultEnabled {
		if err := r.store.Delete(ctx, key); err != nil {
			return err
		}
	} else {
		if err := r.store.SetBool(ctx, key, enabled); err != nil {
			return err
		}
	}

	r.logger.Info("blocklist enablement changed", "list", list.Name, "enabled", enabled)
	return nil
}

// ResetDefaults removes every enablement override and clears the verdict
// cache.
func (r *Registry) ResetDefaults(ctx context.Context) error {
	defer r.cache.Clear()

	for _, list := range r.lists {
		if err := r.store.Delete(ctx, prefKeyPrefix+list.Name); err != nil {
			return err
		}
	}

	r.logger.Info("blocklist enablement reset to defaults")
	return nil
}

// EnabledNames returns the names of all enabled blocklists in registration
// order.
func (r *Registry) EnabledNames(ctx context.Context) []string {
	var names []string
	for _, list := range r.lists {
		if r.IsEnabled(ctx, list) {
			names = append(names, list.Name)
		}
	}
	return names
}
