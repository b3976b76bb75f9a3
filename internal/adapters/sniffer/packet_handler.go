package sniffer

import (
	"log"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// PacketHandler turns 802.11 management frames into WiFi sightings.
type PacketHandler struct {
	Location geo.Provider
	Vendors  ports.VendorLookup
	Debug    bool
}

// NewPacketHandler creates a new PacketHandler. loc and vendors may be nil.
func NewPacketHandler(loc geo.Provider, vendors ports.VendorLookup, debug bool) *PacketHandler {
	return &PacketHandler{Location: loc, Vendors: vendors, Debug: debug}
}

// HandlePacket returns a sighting for beacons, probe responses and probe
// requests. Every other frame yields nil.
func (h *PacketHandler) HandlePacket(packet gopacket.Packet) *domain.WiFiSighting {
	dot11Layer := packet.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return nil
	}
	dot11, ok := dot11Layer.(*layers.Dot11)
	if !ok {
		return nil
	}

	s := &domain.WiFiSighting{
		MAC:  dot11.Address2.String(),
		RSSI: -100,
	}

	var ieData []byte
	switch dot11.Type {
	case layers.Dot11TypeMgmtBeacon:
		s.IsAccessPoint = true
		if beacon := packet.Layer(layers.LayerTypeDot11MgmtBeacon); beacon != nil {
			ieData = beacon.LayerPayload()
		}
	case layers.Dot11TypeMgmtProbeResp:
		s.IsAccessPoint = true
		if resp := packet.Layer(layers.LayerTypeDot11MgmtProbeResp); resp != nil {
			ieData = resp.LayerPayload()
		}
	case layers.Dot11TypeMgmtProbeReq:
		if probe := packet.Layer(layers.LayerTypeDot11MgmtProbeReq); probe != nil {
			ieData = probe.LayerPayload()
		}
	default:
		return nil
	}

	ssid, found := ssidFromIEs(ieData)
	if !found {
		// gopacket may already have split the IEs into their own layers
		for _, layer := range packet.Layers() {
			if ie, ok := layer.(*layers.Dot11InformationElement); ok && ie.ID == layers.Dot11InformationElementIDSSID {
				ssid, found = ie.Info, true
				break
			}
		}
	}
	if h.Vendors != nil {
		s.Vendor = h.Vendors.VendorName(s.MAC)
	}
	s.SSID = cleanSSID(ssid)
	s.Hidden = s.IsAccessPoint && s.SSID == ""

	if radiotapLayer := packet.Layer(layers.LayerTypeRadioTap); radiotapLayer != nil {
		if radiotap, ok := radiotapLayer.(*layers.RadioTap); ok {
			if radiotap.Present.DBMAntennaSignal() {
				s.RSSI = int(radiotap.DBMAntennaSignal)
			}
			s.FrequencyMHz = int(radiotap.ChannelFrequency)
			s.Channel = frequencyToChannel(s.FrequencyMHz)
		}
	}

	if h.Location != nil {
		if loc := h.Location.GetLocation(); loc.Latitude != 0 || loc.Longitude != 0 {
			s.Location = &loc
		}
	}

	s.Timestamp = packet.Metadata().Timestamp
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	if h.Debug {
		log.Printf("[SNIFFER] %s (%s) ssid=%q ap=%v rssi=%d", s.MAC, s.Vendor, s.SSID, s.IsAccessPoint, s.RSSI)
	}
	return s
}

// ssidFromIEs walks raw [ID, Length, Value] elements looking for the SSID.
func ssidFromIEs(data []byte) ([]byte, bool) {
	for len(data) >= 2 {
		id, length := data[0], int(data[1])
		if len(data) < 2+length {
			return nil, false
		}
		if layers.Dot11InformationElementID(id) == layers.Dot11InformationElementIDSSID {
			return data[2 : 2+length], true
		}
		data = data[2+length:]
	}
	return nil, false
}

// cleanSSID treats an all-NUL SSID, as sent by some hidden networks, as empty.
func cleanSSID(raw []byte) string {
	for _, b := range raw {
		if b != 0 {
			return string(raw)
		}
	}
	return ""
}

// frequencyToChannel maps a centre frequency in MHz to its 802.11 channel.
func frequencyToChannel(freq int) int {
	// 2.4 GHz band (channels 1-14)
	if freq >= 2412 && freq <= 2484 {
		if freq == 2484 {
			return 14
		}
		return (freq - 2407) / 5
	}

	// 5 GHz band (channels 36-165)
	if freq >= 5170 && freq <= 5825 {
		return (freq - 5000) / 5
	}

	// 6 GHz band
	if freq >= 5955 && freq <= 7115 {
		return (freq - 5950) / 5
	}

	return 0
}
