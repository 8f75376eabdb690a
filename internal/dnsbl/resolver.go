package dnsbl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/sony/gobreaker"
)

// Resolver is the forward-lookup interface the checker depends on. The
// system resolver (*net.Resolver) satisfies it directly.
type Resolver interface {
	LookupHost(ctx context.Context, host string) (addrs []string, err error)
}

// SystemResolver returns the host's stub resolver
func SystemResolver() Resolver {
	return net.DefaultResolver
}

// DNSResolver resolves via explicit DNS servers instead of the system stub
// resolver. NXDOMAIN is reported as a *net.DNSError with IsNotFound set so
// callers see the same "expected absence" shape regardless of backend.
type DNSResolver struct {
	client  *dns.Client
	servers []string
	retries int
}

// DNSResolverOptions configures a DNSResolver
type DNSResolverOptions struct {
	Servers []string      // "host:port"
	Timeout time.Duration // per-exchange timeout
	Retries int           // attempts per server
}

// NewDNSResolver creates a resolver that queries the given DNS servers
func NewDNSResolver(options DNSResolverOptions) *DNSResolver {
	if options.Timeout == 0 {
		options.Timeout = 5 * time.Second
	}
	if options.Retries == 0 {
		options.Retries = 2
	}
	if len(options.Servers) == 0 {
		options.Servers = []string{"8.8.8.8:53", "1.1.1.1:53"}
	}

	return &DNSResolver{
		client:  &dns.Client{Timeout: options.Timeout},
		servers: options.Servers,
		retries: options.Retries,
	}
}

// LookupHost resolves a name to its A and AAAA addresses. Address literals
// resolve to themselves, matching *net.Resolver.
func (r *DNSResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{host}, nil
	}

	name := dns.Fqdn(host)

	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		response, err := r.exchange(ctx, name, qtype)
		if err != nil {
			return nil, err
		}

		if response.Rcode == dns.RcodeNameError {
			continue
		}
		if response.Rcode != dns.RcodeSuccess {
			return nil, fmt.Errorf("dns query for %s failed with rcode %s",
				host, dns.RcodeToString[response.Rcode])
		}

		for _, answer := range response.Answer {
			switch rr := answer.(type) {
			case *dns.A:
				addrs = append(addrs, rr.A.String())
			case *dns.AAAA:
				addrs = append(addrs, rr.AAAA.String())
			}
		}
	}

	if len(addrs) == 0 {
		return nil, &net.DNSError{
			Err:        "no such host",
			Name:       host,
			IsNotFound: true,
		}
	}

	return addrs, nil
}

func (r *DNSResolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	var lastErr error

	for _, server := range r.servers {
		for attempt := 0; attempt < r.retries; attempt++ {
			msg := new(dns.Msg)
			msg.SetQuestion(name, qtype)
			msg.RecursionDesired = true

			response, _, err := r.client.ExchangeContext(ctx, msg, server)
			if err == nil && response != nil {
				return response, nil
			}
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no dns servers configured")
	}
	return nil, lastErr
}

// BreakerResolver wraps a Resolver with a circuit breaker so that a
// misbehaving resolver fails fast instead of stalling every check. Open
// breaker errors surface as lookup failures, which the checker collapses to
// "not listed" per the fail-open policy. Not-found answers are expected
// DNSBL responses and never count against the breaker.
type BreakerResolver struct {
	inner   Resolver
	breaker *gobreaker.CircuitBreaker
}

type lookupReply struct {
	addrs []string
	err   error
}

// NewBreakerResolver wraps inner with a circuit breaker
func NewBreakerResolver(inner Resolver, logger *slog.Logger) *BreakerResolver {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "dnsbl-resolver",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("resolver circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerResolver{inner: inner, breaker: cb}
}

// LookupHost resolves through the breaker
func (b *BreakerResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		addrs, err := b.inner.LookupHost(ctx, host)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
				return lookupReply{nil, err}, nil
			}
			return nil, err
		}
		return lookupReply{addrs, nil}, nil
	})
	if err != nil {
		return nil, err
	}

	reply := result.(lookupReply)
	return reply.addrs, reply.err
}
