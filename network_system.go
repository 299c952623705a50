package main

import (
	"net"
	"net/netip"

	"github.com/mdlayher/arp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type SystemNetwork struct{}

func NewSystemNetwork() *SystemNetwork {
	return &SystemNetwork{}
}

// SendGratuitousArp announces every IPv4 address of the interface so peers
// relearn the path after a DF takeover.
func (s *SystemNetwork) SendGratuitousArp(interfaceName string) error {
	log.Debug().Str("interface", interfaceName).Msg("sending gratuitous arp")
	iface, err := net.InterfaceByName(interfaceName)
	if err != nil {
		return errors.Wrap(err, "could not get interface")
	}
	client, err := arp.Dial(iface)
	if err != nil {
		return errors.Wrap(err, "could not dial arp")
	}
	defer client.Close()

	addrs, err := iface.Addrs()
	if err != nil {
		return errors.Wrap(err, "could not get interface addresses")
	}
	for _, addr := range addrs {
		ip, _, err := net.ParseCIDR(addr.String())
		if err != nil {
			return errors.Wrap(err, "could not parse cidr")
		}
		if ip.To4() != nil {
			nip, ok := netip.AddrFromSlice(ip.To4())
			if !ok {
				return errors.New("failed to convert ip to netip")
			}
			packet, err := arp.NewPacket(arp.OperationReply, iface.HardwareAddr, nip, net.HardwareAddr{0, 0, 0, 0, 0, 0}, nip)
			if err != nil {
				return errors.Wrap(err, "could not create arp packet")
			}
			err = client.WriteTo(packet, net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
			if err != nil {
				return errors.Wrap(err, "could not write arp packet")
			}
		}
	}
	return nil
}
