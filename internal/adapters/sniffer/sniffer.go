package sniffer

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"

	"github.com/lcalzada-xor/tailwatch/internal/core/ports"
	"github.com/lcalzada-xor/tailwatch/internal/geo"
)

// managementFilter keeps only the frames the handler understands.
const managementFilter = "type mgt subtype beacon or type mgt subtype probe-resp or type mgt subtype probe-req"

// Sniffer feeds WiFi management frames from a monitor-mode interface or a
// capture file into a sighting sink.
type Sniffer struct {
	handler *PacketHandler
	sink    ports.SightingSink
}

// New creates a sniffer that reports to sink.
func New(sink ports.SightingSink, loc geo.Provider, vendors ports.VendorLookup, debug bool) *Sniffer {
	return &Sniffer{
		handler: NewPacketHandler(loc, vendors, debug),
		sink:    sink,
	}
}

// Start captures on a monitor-mode interface until ctx is cancelled.
func (s *Sniffer) Start(ctx context.Context, iface string) error {
	handle, err := pcap.OpenLive(iface, 65536, true, pcap.BlockForever)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", iface, err)
	}
	if err := handle.SetBPFFilter(managementFilter); err != nil {
		handle.Close()
		return fmt.Errorf("failed to set BPF filter on %s: %w", iface, err)
	}

	log.Printf("[SNIFFER] Capturing on %s", iface)
	go func() {
		// Closing the handle unblocks the packet source.
		<-ctx.Done()
		handle.Close()
	}()

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	if _, err := s.run(ctx, source); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// Replay feeds every frame of a pcap file to the sink and returns how many
// sightings were produced. Capture timestamps are preserved.
func (s *Sniffer) Replay(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("failed to read capture header %s: %w", path, err)
	}
	source := gopacket.NewPacketSource(r, r.LinkType())
	n, err := s.run(ctx, source)
	log.Printf("[SNIFFER] Replayed %s: %d sightings", path, n)
	return n, err
}

func (s *Sniffer) run(ctx context.Context, source *gopacket.PacketSource) (int, error) {
	packets := source.Packets()
	n := 0
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case packet, ok := <-packets:
			if !ok {
				return n, nil
			}
			if sighting := s.handler.HandlePacket(packet); sighting != nil {
				s.sink.IngestWiFi(ctx, *sighting)
				n++
			}
		}
	}
}
