package portal

import (
	"fmt"
	"net"

	"github.com/grandcat/zeroconf"

	"github.com/nerrad567/thsensor/internal/infrastructure/config"
)

// mDNS defaults used when the config leaves a field empty.
const (
	defaultMDNSService = "_thsensor._tcp"
	defaultMDNSDomain  = "local."
)

// Announcement is a live mDNS registration.
type Announcement interface {
	Shutdown()
}

// announceFunc registers a service; it matches zeroconf.Register.
type announceFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (Announcement, error)

func zeroconfAnnounce(instance, service, domain string, port int, text []string, ifaces []net.Interface) (Announcement, error) {
	return zeroconf.Register(instance, service, domain, port, text, ifaces)
}

// mdnsRecord resolves the instance, service and domain to announce.
func mdnsRecord(cfg config.MDNSConfig, nodeID string) (instance, service, domain string) {
	instance = cfg.Instance
	if instance == "" {
		instance = "thsensor-" + nodeID
	}
	service = cfg.Service
	if service == "" {
		service = defaultMDNSService
	}
	domain = cfg.Domain
	if domain == "" {
		domain = defaultMDNSDomain
	}
	return instance, service, domain
}

// mdnsTXT builds the TXT records describing the portal.
func mdnsTXT(nodeID string) []string {
	return []string{
		"id=" + nodeID,
		"path=/",
		fmt.Sprintf("api=%s", settingsPath),
	}
}
