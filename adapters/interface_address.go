package adapters

import (
	"fmt"
	"net"

	"network-assistant/application"
)

var ErrNoIPv4Address = fmt.Errorf("no ipv4 address")

type InterfaceAddressResolver struct {
	// InterfaceByName defaults to net.InterfaceByName.
	InterfaceByName func(name string) (*net.Interface, error)
}

func NewInterfaceAddressResolver() *InterfaceAddressResolver {
	return &InterfaceAddressResolver{InterfaceByName: net.InterfaceByName}
}

func (r *InterfaceAddressResolver) IPv4(name string) (string, error) {
	iface, err := r.InterfaceByName(name)
	if err != nil {
		return "", fmt.Errorf("interface %q: %w", name, err)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("interface %q: %w", name, err)
	}

	ip := firstIPv4(addrs)
	if ip == nil {
		return "", fmt.Errorf("interface %q: %w", name, ErrNoIPv4Address)
	}
	return ip.String(), nil
}

func firstIPv4(addrs []net.Addr) net.IP {
	for _, addr := range addrs {
		var ip net.IP
		switch a := addr.(type) {
		case *net.IPNet:
			ip = a.IP
		case *net.IPAddr:
			ip = a.IP
		}
		if ip4 := ip.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}

var _ application.AddressResolver = &InterfaceAddressResolver{}
