package ledbar

import (
	"github.com/merliot/ledbar/dean"
)

// NewServer wraps l in a dean.Server set up from cfg.  With no address, TLS
// host, hub, broker or mDNS configured the server only runs the Thing.
func NewServer(l *Ledbar, cfg Config) *dean.Server {
	server := dean.NewServer(l)
	server.Addr = cfg.Addr
	server.BasicAuth(cfg.User, cfg.Passwd)
	if cfg.TLSHost != "" {
		server.ServeTLS(cfg.TLSHost)
	}
	if cfg.Hub != "" {
		server.Dial(cfg.User, cfg.Passwd, cfg.Hub)
	}
	if cfg.Mdns {
		server.Advertise()
	}
	if cfg.MqttBroker != "" {
		server.Mqtt(cfg.MqttBroker, cfg.MqttTopic)
	}
	return server
}
