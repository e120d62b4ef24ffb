package udp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"net/netip"
	"time"
)

// connectionIDWindow is the bucket width for connection id derivation.
// An id stays valid for the current and previous bucket, so clients get
// at least two minutes per BEP 15.
const connectionIDWindow = 2 * time.Minute

// connectionIDIssuer derives connection ids from the client address and
// a time bucket, keyed by an HMAC secret. No per-client state is kept.
type connectionIDIssuer struct {
	secret []byte
	now    func() time.Time
}

func newConnectionIDIssuer(secret string) *connectionIDIssuer {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	return &connectionIDIssuer{
		secret: key,
		now:    time.Now,
	}
}

func (i *connectionIDIssuer) Issue(addr netip.AddrPort) uint64 {
	return i.idForBucket(addr, i.currentBucket())
}

func (i *connectionIDIssuer) Verify(id uint64, addr netip.AddrPort) bool {
	bucket := i.currentBucket()
	return id == i.idForBucket(addr, bucket) || id == i.idForBucket(addr, bucket-1)
}

func (i *connectionIDIssuer) currentBucket() int64 {
	return i.now().Unix() / int64(connectionIDWindow/time.Second)
}

func (i *connectionIDIssuer) idForBucket(addr netip.AddrPort, bucket int64) uint64 {
	mac := hmac.New(sha256.New, i.secret)

	var bucketBytes [8]byte
	binary.BigEndian.PutUint64(bucketBytes[:], uint64(bucket))
	mac.Write(bucketBytes[:])

	ip := addr.Addr().Unmap().AsSlice()
	mac.Write(ip)

	var portBytes [2]byte
	binary.BigEndian.PutUint16(portBytes[:], addr.Port())
	mac.Write(portBytes[:])

	return binary.BigEndian.Uint64(mac.Sum(nil)[:8])
}
