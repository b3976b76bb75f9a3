package sniffer

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// PacketBuilder constructs raw 802.11 frames for tests.
type PacketBuilder struct {
	data []byte
}

func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{data: make([]byte, 0)}
}

func (pb *PacketBuilder) AddMgmtBeacon(sa, bssid net.HardwareAddr, ssid string) *PacketBuilder {
	broadcast := net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	pb.data = append(pb.data, buildDot11Header(0x80, broadcast, sa, bssid)...)

	// Timestamp(8), Interval(2), CapInfo(2)
	fixed := []byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x64, 0x00,
		0x01, 0x00,
	}
	pb.data = append(pb.data, fixed...)
	return pb.AddIE(layers.Dot11InformationElementIDSSID, []byte(ssid))
}

func (pb *PacketBuilder) AddMgmtProbeReq(sa net.HardwareAddr, ssid string) *PacketBuilder {
	broadcast := net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	pb.data = append(pb.data, buildDot11Header(0x40, broadcast, sa, broadcast)...)
	return pb.AddIE(layers.Dot11InformationElementIDSSID, []byte(ssid))
}

func (pb *PacketBuilder) AddDataFrame(addr1, addr2, addr3 net.HardwareAddr, payload []byte) *PacketBuilder {
	header := buildDot11Header(0x08, addr1, addr2, addr3)
	header[1] = 0x01 // ToDS
	pb.data = append(pb.data, header...)
	pb.data = append(pb.data, payload...)
	return pb
}

func (pb *PacketBuilder) AddIE(id layers.Dot11InformationElementID, data []byte) *PacketBuilder {
	ie := []byte{byte(id), byte(len(data))}
	pb.data = append(pb.data, append(ie, data...)...)
	return pb
}

// Bytes returns the frame with a dummy FCS appended.
func (pb *PacketBuilder) Bytes() []byte {
	return append(append([]byte{}, pb.data...), 0xDE, 0xAD, 0xBE, 0xEF)
}

func (pb *PacketBuilder) Build() gopacket.Packet {
	return gopacket.NewPacket(pb.Bytes(), layers.LayerTypeDot11, gopacket.Default)
}

// buildDot11Header returns a 24 byte management/data header.
func buildDot11Header(fcType byte, a1, a2, a3 net.HardwareAddr) []byte {
	h := make([]byte, 24)
	h[0] = fcType
	copy(h[4:], a1)
	copy(h[10:], a2)
	copy(h[16:], a3)
	return h
}
