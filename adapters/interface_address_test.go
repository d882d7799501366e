package adapters

import (
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstIPv4(t *testing.T) {
	_, v6, err := net.ParseCIDR("fe80::1/64")
	require.NoError(t, err)

	addrs := []net.Addr{
		v6,
		&net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)},
		&net.IPAddr{IP: net.ParseIP("10.0.0.5")},
	}
	assert.Equal(t, "192.168.1.20", firstIPv4(addrs).String())
	assert.Nil(t, firstIPv4(addrs[:1]))
	assert.Nil(t, firstIPv4(nil))
}

func TestInterfaceAddressResolver_Loopback(t *testing.T) {
	ifaces, err := net.Interfaces()
	require.NoError(t, err)

	var loopback string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			loopback = iface.Name
			break
		}
	}
	if loopback == "" {
		t.Skip("no loopback interface")
	}

	ip, err := NewInterfaceAddressResolver().IPv4(loopback)
	if err != nil {
		t.Skipf("loopback has no ipv4 address: %v", err)
	}
	assert.True(t, net.ParseIP(ip).IsLoopback())
}

func TestInterfaceAddressResolver_UnknownInterface(t *testing.T) {
	resolver := &InterfaceAddressResolver{
		InterfaceByName: func(name string) (*net.Interface, error) {
			return nil, fmt.Errorf("no such network interface")
		},
	}

	_, err := resolver.IPv4("wlan9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wlan9")
}
