// Package domain holds the tracker's core types shared by the swarm
// store, the services and both transports.
package domain

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"time"
)

// InfoHash is the 20-byte SHA-1 identifier of a torrent.
type InfoHash [20]byte

// InfoHashFromHex parses the 40-character hex form used by the HTTP API.
func InfoHashFromHex(s string) (InfoHash, error) {
	var h InfoHash
	raw, err := hex.DecodeString(s)
	if err != nil {
		return InfoHash{}, fmt.Errorf("decode infohash hex: %w", err)
	}
	if len(raw) != len(h) {
		return InfoHash{}, fmt.Errorf("infohash must be %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h InfoHash) String() string {
	return hex.EncodeToString(h[:])
}

// PeerID is the 20-byte peer identifier reported by the client.
type PeerID [20]byte

func (id PeerID) String() string {
	return hex.EncodeToString(id[:])
}

// Peer is one swarm member as last announced.
type Peer struct {
	ID         PeerID
	Addr       netip.AddrPort
	Uploaded   uint64
	Downloaded uint64
	Left       uint64
	LastSeen   time.Time
}

// Seeding reports whether the peer has completed the download.
func (p Peer) Seeding() bool {
	return p.Left == 0
}

// Key identifies a peer within a swarm. A client re-announcing from the
// same address with the same peer id updates its existing entry.
func (p Peer) Key() string {
	return p.ID.String() + "@" + p.Addr.String()
}

// SwarmStats is the per-torrent summary served to scrapes and the API.
type SwarmStats struct {
	Seeders   int32
	Leechers  int32
	Completed int32
}

// AnnounceEvent is the event field of an announce request. Values match
// the BitTorrent UDP tracker protocol wire encoding.
type AnnounceEvent int32

const (
	EventNone      AnnounceEvent = 0
	EventCompleted AnnounceEvent = 1
	EventStarted   AnnounceEvent = 2
	EventStopped   AnnounceEvent = 3
)

func (e AnnounceEvent) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventCompleted:
		return "completed"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(e))
	}
}

// Valid reports whether the wire value is a known event.
func (e AnnounceEvent) Valid() bool {
	return e >= EventNone && e <= EventStopped
}
