package dnsbl

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxcpp/go-mockdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busybox42/relaycheck/internal/logging"
	"github.com/busybox42/relaycheck/internal/prefs"
)

// fakeResolver answers from a fixed table and records every query. Names
// with no entry resolve as not-found, the canonical DNSBL absence.
type fakeResolver struct {
	mu      sync.Mutex
	calls   []string
	answers map[string][]string
	errs    map[string]error
}

func (f *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, host)
	f.mu.Unlock()

	if err, ok := f.errs[host]; ok {
		return nil, err
	}
	if addrs, ok := f.answers[host]; ok {
		return addrs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeResolver) calledZone(zone string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if strings.HasSuffix(call, zone) {
			return true
		}
	}
	return false
}

func newTestChecker(resolver Resolver) (*Checker, *Registry, *Cache) {
	store := prefs.NewMemory()
	cache := NewCache(time.Hour)
	registry := NewRegistry(store, cache, logging.Nop())
	return NewChecker(registry, cache, resolver, logging.Nop()), registry, cache
}

func TestLiteralAddressListed(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"192.0.2.1":                  {"192.0.2.1"},
		"1.2.0.192.zen.spamhaus.org": {"127.0.0.2"},
	}}
	checker, _, _ := newTestChecker(resolver)

	assert.True(t, checker.IsJunkHost(ctx, "[192.0.2.1]"))
}

func TestLiteralAddressNotFound(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"192.0.2.1": {"192.0.2.1"},
	}}
	checker, _, _ := newTestChecker(resolver)

	assert.False(t, checker.IsJunkHost(ctx, "[192.0.2.1]"))
}

func TestSignalAddressMismatch(t *testing.T) {
	ctx := context.Background()
	// zen answers with a code outside the signal set; Spamcop answers with
	// nothing. Neither may produce a listing.
	resolver := &fakeResolver{answers: map[string][]string{
		"192.0.2.1":                  {"192.0.2.1"},
		"1.2.0.192.zen.spamhaus.org": {"127.0.0.10"},
	}}
	checker, _, _ := newTestChecker(resolver)

	assert.False(t, checker.IsJunkHost(ctx, "[192.0.2.1]"))
}

func TestLocalAddressesNeverQueried(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"internal.example": {"127.0.0.1", "10.0.0.5", "169.254.1.1", "224.0.0.1", "fe80::1"},
	}}
	checker, _, _ := newTestChecker(resolver)

	assert.False(t, checker.IsJunkHost(ctx, "internal.example"))
	assert.False(t, resolver.calledZone("zen.spamhaus.org"))
	assert.False(t, resolver.calledZone("bl.spamcop.net"))
}

func TestAggregateShortCircuit(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"mail.example.com":           {"192.0.2.7"},
		"7.2.0.192.zen.spamhaus.org": {"127.0.0.4"},
		"7.2.0.192.bl.spamcop.net":   {"127.0.0.2"},
	}}
	checker, _, _ := newTestChecker(resolver)

	assert.True(t, checker.IsJunkHost(ctx, "mail.example.com"))
	// zen (first in registry order) already answered; Spamcop is not asked
	assert.True(t, resolver.calledZone("zen.spamhaus.org"))
	assert.False(t, resolver.calledZone("bl.spamcop.net"))
}

func TestVerdictCached(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"mail.example.com":           {"192.0.2.7"},
		"7.2.0.192.zen.spamhaus.org": {"127.0.0.2"},
	}}
	checker, _, cache := newTestChecker(resolver)

	assert.True(t, checker.IsJunkHost(ctx, "mail.example.com"))
	queried := resolver.callCount()
	assert.Greater(t, queried, 0)

	// second call inside the expiry window: same verdict, no new queries
	assert.True(t, checker.IsJunkHost(ctx, "mail.example.com"))
	assert.Equal(t, queried, resolver.callCount())

	// hostnames are cached lowercase
	assert.True(t, checker.IsJunkHost(ctx, "MAIL.Example.COM"))
	assert.Equal(t, queried, resolver.callCount())

	// once expired, evaluation runs again
	cache.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.True(t, checker.IsJunkHost(ctx, "mail.example.com"))
	assert.Greater(t, resolver.callCount(), queried)
}

func TestEnablementChangeInvalidatesVerdict(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"mail.example.com":                 {"192.0.2.7"},
		"7.2.0.192.b.barracudacentral.org": {"127.0.0.2"},
	}}
	checker, registry, cache := newTestChecker(resolver)

	// Barracuda is default-disabled, so the host is clean and cached as such
	assert.False(t, checker.IsJunkHost(ctx, "mail.example.com"))
	assert.Equal(t, 1, cache.Len())

	// enabling Barracuda clears the cache; the stale clean verdict must not
	// short-circuit the broader check
	barracuda := registry.Find("Barracuda")
	require.NoError(t, registry.SetEnabled(ctx, barracuda, true))
	assert.Equal(t, 0, cache.Len())

	assert.True(t, checker.IsJunkHost(ctx, "mail.example.com"))
}

func TestDomainSuffixList(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"spam.example.dbl.spamhaus.org": {"127.0.1.2"},
	}}
	checker, registry, _ := newTestChecker(resolver)

	// leave only the domain-suffix list enabled
	require.NoError(t, registry.SetEnabled(ctx, registry.Find("Spamhaus/zen"), false))
	require.NoError(t, registry.SetEnabled(ctx, registry.Find("Spamcop"), false))
	require.NoError(t, registry.SetEnabled(ctx, registry.Find("Spamhaus/DBL"), true))

	assert.True(t, checker.IsJunkHost(ctx, "spam.example"))
	resolver.mu.Lock()
	assert.Contains(t, resolver.calls, "spam.example.dbl.spamhaus.org")
	resolver.mu.Unlock()
}

func TestDomainSuffixListSkipsLiterals(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{}
	checker, registry, _ := newTestChecker(resolver)

	require.NoError(t, registry.SetEnabled(ctx, registry.Find("Spamhaus/zen"), false))
	require.NoError(t, registry.SetEnabled(ctx, registry.Find("Spamcop"), false))
	require.NoError(t, registry.SetEnabled(ctx, registry.Find("Spamhaus/DBL"), true))

	// no valid query can be formed for a literal against a domain list
	assert.False(t, checker.IsJunkHost(ctx, "[192.0.2.1]"))
	assert.Equal(t, 0, resolver.callCount())
}

func TestLookupFailureFailsOpen(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{
		answers: map[string][]string{
			"mail.example.com":         {"192.0.2.7"},
			"7.2.0.192.bl.spamcop.net": {"127.0.0.2"},
		},
		errs: map[string]error{
			"7.2.0.192.zen.spamhaus.org": &net.DNSError{Err: "i/o timeout", IsTimeout: true, IsTemporary: true},
		},
	}
	checker, _, _ := newTestChecker(resolver)

	// zen's lookup fails but evaluation continues with Spamcop
	assert.True(t, checker.IsJunkHost(ctx, "mail.example.com"))
}

func TestHostResolutionFailureFailsOpen(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{
		errs: map[string]error{
			"mail.example.com": &net.DNSError{Err: "server misbehaving", IsTemporary: true},
		},
	}
	checker, _, _ := newTestChecker(resolver)

	assert.False(t, checker.IsJunkHost(ctx, "mail.example.com"))
}

func TestNoEnabledLists(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"mail.example.com": {"192.0.2.7"},
	}}
	checker, registry, _ := newTestChecker(resolver)

	for _, list := range registry.Lists() {
		require.NoError(t, registry.SetEnabled(ctx, list, false))
	}

	assert.False(t, checker.IsJunkHost(ctx, "mail.example.com"))
	assert.Equal(t, 0, resolver.callCount())
}

func TestCheckReceived(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{answers: map[string][]string{
		"mail.example.com":           {"192.0.2.7"},
		"7.2.0.192.zen.spamhaus.org": {"127.0.0.2"},
	}}
	checker, _, _ := newTestChecker(resolver)

	junk, known := checker.CheckReceived(ctx, []string{
		"from other.example.org by relay.example.org",
		"from mail.example.com by mx.example.org with ESMTP",
	})
	assert.True(t, known)
	assert.True(t, junk)
}

func TestCheckReceivedUnknown(t *testing.T) {
	ctx := context.Background()
	resolver := &fakeResolver{}
	checker, _, _ := newTestChecker(resolver)

	_, known := checker.CheckReceived(ctx, []string{"by mx.example.org with ESMTP"})
	assert.False(t, known)
	assert.Equal(t, 0, resolver.callCount())

	_, known = checker.CheckReceived(ctx, nil)
	assert.False(t, known)
	assert.Equal(t, 0, resolver.callCount())
}

// End-to-end through a real resolver backend against a mock DNS server.
func TestCheckerWithMockDNS(t *testing.T) {
	srv, err := mockdns.NewServer(map[string]mockdns.Zone{
		"mail.junk.example.": {
			A: []string{"192.0.2.99"},
		},
		"99.2.0.192.zen.spamhaus.org.": {
			A: []string{"127.0.0.2"},
		},
	}, false)
	require.NoError(t, err)
	defer srv.Close()

	resolver := &net.Resolver{}
	srv.PatchNet(resolver)
	defer mockdns.UnpatchNet(resolver)

	checker, _, _ := newTestChecker(resolver)

	ctx := context.Background()
	assert.True(t, checker.IsJunkHost(ctx, "mail.junk.example"))
	assert.False(t, checker.IsJunkHost(ctx, "mail.clean.example"))
}
