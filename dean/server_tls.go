package dean

import (
	"net"

	"golang.org/x/crypto/acme/autocert"
)

func tlsListener(host string) net.Listener {
	return autocert.NewListener(host)
}
