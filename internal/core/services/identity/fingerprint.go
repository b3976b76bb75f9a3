package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lcalzada-xor/tailwatch/internal/core/domain"
	"github.com/lcalzada-xor/tailwatch/internal/core/services/signatures"
)

// manufacturerPrefixLen is how much of the manufacturer payload is stable
// enough to identify a device. The tail usually carries counters or keys.
const manufacturerPrefixLen = 4

var ephemeralSeq atomic.Uint64

// Fingerprint hashes the quasi-stable advertisement fields of a sighting.
// stable is false when the sighting carries none of them; the returned value
// is then unique to this call and will never match a later sighting.
func Fingerprint(s domain.Sighting, now time.Time) (fp string, stable bool) {
	var buffer bytes.Buffer

	if s.ManufacturerID != nil {
		buffer.WriteByte('m')
		var id [2]byte
		binary.LittleEndian.PutUint16(id[:], *s.ManufacturerID)
		buffer.Write(id[:])

		data := s.ManufacturerData
		if len(data) > manufacturerPrefixLen {
			data = data[:manufacturerPrefixLen]
		}
		buffer.WriteByte(byte(len(data)))
		buffer.Write(data)
	}

	if ids := normalizedServices(s.ServiceIDs); len(ids) > 0 {
		buffer.WriteByte('s')
		buffer.WriteString(strings.Join(ids, "|"))
	}

	if name := strings.TrimSpace(s.Name); name != "" {
		buffer.WriteByte('n')
		buffer.WriteString(name)
	}

	if buffer.Len() == 0 {
		seed := strconv.FormatInt(now.UnixNano(), 36) + "-" + strconv.FormatUint(ephemeralSeq.Add(1), 36)
		hash := sha256.Sum256([]byte("ephemeral|" + s.Address + "|" + seed))
		return hex.EncodeToString(hash[:]), false
	}

	hash := sha256.Sum256(buffer.Bytes())
	return hex.EncodeToString(hash[:]), true
}

func normalizedServices(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	unique := make(map[string]bool, len(ids))
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		n := signatures.NormalizeServiceID(id)
		if n == "" || unique[n] {
			continue
		}
		unique[n] = true
		list = append(list, n)
	}
	sort.Strings(list)
	return list
}
