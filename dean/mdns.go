package dean

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsServiceType = "_dean._tcp"
	mdnsDomain      = "local."
)

// advertise registers the thing on the local network until ctx is done
func advertise(ctx context.Context, thinger Thinger, addr string) error {
	port, err := addrPort(addr)
	if err != nil {
		return fmt.Errorf("mdns: %w", err)
	}

	server, err := zeroconf.Register(thinger.Id(), mdnsServiceType, mdnsDomain,
		port, txtRecords(thinger), nil)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	slog.Info("mDNS advertising", "id", thinger.Id(), "port", port)
	<-ctx.Done()
	server.Shutdown()
	return nil
}

func txtRecords(thinger Thinger) []string {
	return []string{
		"id=" + thinger.Id(),
		"model=" + thinger.Model(),
		"name=" + thinger.Name(),
	}
}

func addrPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("bad port in %q", addr)
	}
	return port, nil
}
