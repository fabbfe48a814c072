package main

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsService = "_screencap._tcp"
	mdnsDomain  = "local."
)

// Peer is a screencap server announced on the local network.
type Peer struct {
	Instance string
	Version  string
	Path     string
	IP       net.IP
	Port     int
	Hostname string
}

// URL returns the streamable HTTP endpoint of the peer.
func (p Peer) URL() string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(p.IP.String(), fmt.Sprint(p.Port)), p.Path)
}

func (p Peer) String() string {
	return fmt.Sprintf("%s (v%s) at %s", p.Instance, p.Version, p.URL())
}

// Advertise announces an HTTP server listening on port via mDNS. The returned
// function withdraws the announcement.
func Advertise(instance string, port int) (func(), error) {
	txt := []string{"version=" + version, "path=" + mcpPath}
	server, err := zeroconf.Register(instance, mdnsService, mdnsDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("registering mDNS service: %w", err)
	}
	return server.Shutdown, nil
}

// DiscoverPeers browses mDNS for screencap servers until ctx is done. Each
// instance is sent once. Both channels close when browsing stops.
func DiscoverPeers(ctx context.Context) (<-chan Peer, <-chan error) {
	peers := make(chan Peer)
	errs := make(chan error, 1)

	go func() {
		defer close(peers)
		defer close(errs)

		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			errs <- fmt.Errorf("creating mDNS resolver: %w", err)
			return
		}

		entries := make(chan *zeroconf.ServiceEntry)
		done := make(chan struct{})
		seen := make(map[string]bool)

		go func() {
			defer close(done)
			for entry := range entries {
				p := parsePeer(entry)
				if seen[p.Instance] {
					continue
				}
				seen[p.Instance] = true
				select {
				case peers <- p:
				case <-ctx.Done():
				}
			}
		}()

		err = resolver.Browse(ctx, mdnsService, mdnsDomain, entries)
		if err != nil {
			close(entries)
			<-done
			errs <- fmt.Errorf("browsing for screencap servers: %w", err)
			return
		}

		<-ctx.Done()
		<-done
	}()

	return peers, errs
}

func parsePeer(entry *zeroconf.ServiceEntry) Peer {
	p := Peer{
		Instance: entry.Instance,
		Port:     entry.Port,
		Hostname: entry.HostName,
		Path:     mcpPath,
	}

	if len(entry.AddrIPv4) > 0 {
		p.IP = entry.AddrIPv4[0]
	} else if len(entry.AddrIPv6) > 0 {
		p.IP = entry.AddrIPv6[0]
	}

	for _, txt := range entry.Text {
		key, value, ok := strings.Cut(txt, "=")
		if !ok {
			continue
		}
		switch key {
		case "version":
			p.Version = value
		case "path":
			p.Path = value
		}
	}

	return p
}
