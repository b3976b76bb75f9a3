package mock

import (
	"fmt"
	"math/rand"
	"sort"
)

var commonSSIDs = []string{
	"HomeNetwork", "NETGEAR-5G", "Starbucks WiFi", "TP-Link_2.4GHz",
	"Linksys", "ATT-WiFi", "Xfinity", "Office-Network", "Guest-WiFi",
	"CoffeeShop_Free", "Airport_WiFi", "Hotel-Guest", "Apartment_5G",
}

// Vendor OUI prefixes (first 3 bytes of MAC)
var vendorPrefixes = map[string]string{
	"Apple":   "00:17:F2",
	"Samsung": "00:12:FB",
	"Cisco":   "00:1E:BD",
	"TP-Link": "50:C7:BF",
	"Netgear": "A0:63:91",
	"Google":  "F4:F5:D8",
	"Amazon":  "FC:A6:67",
	"Xiaomi":  "34:CE:00",
	"Intel":   "00:13:02",
	"Sony":    "00:13:A9",
}

// Bluetooth SIG company identifiers used for background advertisers.
var backgroundManufacturers = []uint16{
	0x0006, // Microsoft
	0x0059, // Nordic Semiconductor
	0x00E0, // Google
	0x0157, // Huami
}

var channels24GHz = []int{1, 6, 11}
var channels5GHz = []int{36, 40, 44, 48, 149, 153, 157, 161}

// Generator produces reproducible addresses and payloads from a seeded source.
type Generator struct {
	rand    *rand.Rand
	vendors []string
}

// NewGenerator creates a generator; equal seeds yield equal sequences.
func NewGenerator(seed int64) *Generator {
	vendors := make([]string, 0, len(vendorPrefixes))
	for v := range vendorPrefixes {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	return &Generator{
		rand:    rand.New(rand.NewSource(seed)),
		vendors: vendors,
	}
}

// GenerateMAC generates a public MAC address with an optional vendor prefix.
func (g *Generator) GenerateMAC(vendor string) string {
	prefix, ok := vendorPrefixes[vendor]
	if !ok {
		prefix = vendorPrefixes[g.vendors[g.rand.Intn(len(g.vendors))]]
	}
	return fmt.Sprintf("%s:%02X:%02X:%02X", prefix, g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256))
}

// ResolvablePrivateAddress generates a random address whose two most
// significant bits are 01.
func (g *Generator) ResolvablePrivateAddress() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		0x40|g.rand.Intn(0x40),
		g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256))
}

// RandomStaticAddress generates an address whose two most significant bits are 11.
func (g *Generator) RandomStaticAddress() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		0xC0|g.rand.Intn(0x40),
		g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256), g.rand.Intn(256))
}

// Payload returns n random bytes.
func (g *Generator) Payload(n int) []byte {
	b := make([]byte, n)
	g.rand.Read(b)
	return b
}

// Jitter returns a value in [base-spread, base+spread].
func (g *Generator) Jitter(base, spread int) int {
	if spread <= 0 {
		return base
	}
	return base - spread + g.rand.Intn(2*spread+1)
}

// Channel picks a 2.4 or 5 GHz channel, roughly 40% of them 5 GHz.
func (g *Generator) Channel() (channel, freqMHz int) {
	if g.rand.Float32() < 0.4 {
		channel = channels5GHz[g.rand.Intn(len(channels5GHz))]
		return channel, 5000 + channel*5
	}
	channel = channels24GHz[g.rand.Intn(len(channels24GHz))]
	return channel, 2407 + channel*5
}

// SSID picks a common network name.
func (g *Generator) SSID() string {
	return commonSSIDs[g.rand.Intn(len(commonSSIDs))]
}

// Manufacturer picks a background advertiser company identifier.
func (g *Generator) Manufacturer() uint16 {
	return backgroundManufacturers[g.rand.Intn(len(backgroundManufacturers))]
}
