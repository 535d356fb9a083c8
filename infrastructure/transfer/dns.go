package transfer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	"github.com/miekg/dns"
)

// dnsResolver resolves host names against an explicit list of DNS servers.
type dnsResolver struct {
	client  *dns.Client
	servers []string
}

func newDNSResolver(servers []string, timeout time.Duration) *dnsResolver {
	if timeout <= 0 || timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &dnsResolver{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		servers: servers,
	}
}

// parseDNSServers parses a comma-separated list of host[:port] server addresses.
// Hosts must be IP literals, the port defaults to 53.
func parseDNSServers(value string) ([]string, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var servers []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		host, port, err := net.SplitHostPort(item)
		if err != nil {
			host, port = strings.Trim(item, "[]"), "53"
		}
		if net.ParseIP(host) == nil {
			return nil, newErrorf(BadFunctionArgument, "DNS server %q is not an IP address", item)
		}
		servers = append(servers, net.JoinHostPort(host, port))
	}
	return servers, nil
}

// lookup returns the addresses of host, IPv4 first unless only IPv6 is wanted.
func (r *dnsResolver) lookup(ctx context.Context, host string, ipResolve int64) ([]net.IP, error) {
	var qtypes []uint16
	switch ipResolve {
	case entities.IPResolveV4:
		qtypes = []uint16{dns.TypeA}
	case entities.IPResolveV6:
		qtypes = []uint16{dns.TypeAAAA}
	default:
		qtypes = []uint16{dns.TypeA, dns.TypeAAAA}
	}

	var ips []net.IP
	var lastErr error
	for _, qtype := range qtypes {
		found, err := r.query(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		ips = append(ips, found...)
	}
	if len(ips) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no addresses for %s", host)
		}
		return nil, &net.DNSError{Err: lastErr.Error(), Name: host, IsNotFound: true}
	}
	return ips, nil
}

func (r *dnsResolver) query(ctx context.Context, host string, qtype uint16) ([]net.IP, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%s answered %s", server, dns.RcodeToString[in.Rcode])
			continue
		}
		var ips []net.IP
		for _, rr := range in.Answer {
			switch v := rr.(type) {
			case *dns.A:
				ips = append(ips, v.A)
			case *dns.AAAA:
				ips = append(ips, v.AAAA)
			}
		}
		return ips, nil
	}
	return nil, lastErr
}
