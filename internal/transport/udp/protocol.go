// Package udp implements the BitTorrent UDP tracker protocol (BEP 15):
// fixed-offset big-endian frames for connect, announce and scrape over
// a single datagram socket.
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hungfnt/torrust-tracker/internal/domain"
)

// protocolMagic is the constant connection id a client must send in a
// connect request.
const protocolMagic = 0x41727101980

const (
	actionConnect  = 0
	actionAnnounce = 1
	actionScrape   = 2
	actionError    = 3
)

const (
	connectRequestLen  = 16
	connectResponseLen = 16
	announceRequestLen = 98
	announceHeaderLen  = 20
	peerEntryLen       = 6
	scrapeHeaderLen    = 16
	scrapeEntryLen     = 12
	errorHeaderLen     = 8
)

var (
	ErrPacketTooShort = errors.New("packet too short")
	ErrBadMagic       = errors.New("connect request carries wrong protocol id")
	ErrUnknownAction  = errors.New("unknown action")
)

type ConnectRequest struct {
	TransactionID uint32
}

type AnnounceRequest struct {
	ConnectionID  uint64
	TransactionID uint32
	InfoHash      domain.InfoHash
	PeerID        domain.PeerID
	Downloaded    uint64
	Left          uint64
	Uploaded      uint64
	Event         domain.AnnounceEvent
	IP            uint32
	Key           uint32
	NumWant       int32
	Port          uint16
}

type ScrapeRequest struct {
	ConnectionID  uint64
	TransactionID uint32
	InfoHashes    []domain.InfoHash
}

// PacketAction reads the action field of any tracker request. Requests
// put the action at offset 8, after the connection id.
func PacketAction(buf []byte) (uint32, error) {
	if len(buf) < connectRequestLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrPacketTooShort, len(buf))
	}
	return binary.BigEndian.Uint32(buf[8:12]), nil
}

// TransactionID reads the transaction id shared by all request frames,
// used to address error responses for malformed packets.
func TransactionID(buf []byte) (uint32, bool) {
	if len(buf) < connectRequestLen {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[12:16]), true
}

func ParseConnectRequest(buf []byte) (ConnectRequest, error) {
	if len(buf) < connectRequestLen {
		return ConnectRequest{}, fmt.Errorf("%w: connect needs %d bytes, got %d", ErrPacketTooShort, connectRequestLen, len(buf))
	}
	if binary.BigEndian.Uint64(buf[0:8]) != protocolMagic {
		return ConnectRequest{}, ErrBadMagic
	}
	if binary.BigEndian.Uint32(buf[8:12]) != actionConnect {
		return ConnectRequest{}, fmt.Errorf("%w: %d", ErrUnknownAction, binary.BigEndian.Uint32(buf[8:12]))
	}
	return ConnectRequest{
		TransactionID: binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

func ParseAnnounceRequest(buf []byte) (AnnounceRequest, error) {
	if len(buf) < announceRequestLen {
		return AnnounceRequest{}, fmt.Errorf("%w: announce needs %d bytes, got %d", ErrPacketTooShort, announceRequestLen, len(buf))
	}

	var req AnnounceRequest
	req.ConnectionID = binary.BigEndian.Uint64(buf[0:8])
	req.TransactionID = binary.BigEndian.Uint32(buf[12:16])
	copy(req.InfoHash[:], buf[16:36])
	copy(req.PeerID[:], buf[36:56])
	req.Downloaded = binary.BigEndian.Uint64(buf[56:64])
	req.Left = binary.BigEndian.Uint64(buf[64:72])
	req.Uploaded = binary.BigEndian.Uint64(buf[72:80])
	req.Event = domain.AnnounceEvent(int32(binary.BigEndian.Uint32(buf[80:84])))
	req.IP = binary.BigEndian.Uint32(buf[84:88])
	req.Key = binary.BigEndian.Uint32(buf[88:92])
	req.NumWant = int32(binary.BigEndian.Uint32(buf[92:96]))
	req.Port = binary.BigEndian.Uint16(buf[96:98])
	return req, nil
}

func ParseScrapeRequest(buf []byte) (ScrapeRequest, error) {
	if len(buf) < scrapeHeaderLen+20 {
		return ScrapeRequest{}, fmt.Errorf("%w: scrape needs at least %d bytes, got %d", ErrPacketTooShort, scrapeHeaderLen+20, len(buf))
	}

	req := ScrapeRequest{
		ConnectionID:  binary.BigEndian.Uint64(buf[0:8]),
		TransactionID: binary.BigEndian.Uint32(buf[12:16]),
	}

	body := buf[scrapeHeaderLen:]
	for len(body) >= 20 {
		var hash domain.InfoHash
		copy(hash[:], body[:20])
		req.InfoHashes = append(req.InfoHashes, hash)
		body = body[20:]
	}
	return req, nil
}

func EncodeConnectResponse(transactionID uint32, connectionID uint64) []byte {
	buf := make([]byte, connectResponseLen)
	binary.BigEndian.PutUint32(buf[0:4], actionConnect)
	binary.BigEndian.PutUint32(buf[4:8], transactionID)
	binary.BigEndian.PutUint64(buf[8:16], connectionID)
	return buf
}

// EncodeAnnounceResponse writes the announce reply. Only IPv4 peers fit
// the compact 6-byte entries; others are skipped.
func EncodeAnnounceResponse(transactionID uint32, intervalSec, leechers, seeders int32, peers []domain.Peer) []byte {
	buf := make([]byte, announceHeaderLen, announceHeaderLen+len(peers)*peerEntryLen)
	binary.BigEndian.PutUint32(buf[0:4], actionAnnounce)
	binary.BigEndian.PutUint32(buf[4:8], transactionID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(intervalSec))
	binary.BigEndian.PutUint32(buf[12:16], uint32(leechers))
	binary.BigEndian.PutUint32(buf[16:20], uint32(seeders))

	for _, peer := range peers {
		addr := peer.Addr.Addr().Unmap()
		if !addr.Is4() {
			continue
		}
		v4 := addr.As4()
		var entry [peerEntryLen]byte
		copy(entry[0:4], v4[:])
		binary.BigEndian.PutUint16(entry[4:6], peer.Addr.Port())
		buf = append(buf, entry[:]...)
	}
	return buf
}

func EncodeScrapeResponse(transactionID uint32, stats []domain.SwarmStats) []byte {
	buf := make([]byte, errorHeaderLen, errorHeaderLen+len(stats)*scrapeEntryLen)
	binary.BigEndian.PutUint32(buf[0:4], actionScrape)
	binary.BigEndian.PutUint32(buf[4:8], transactionID)

	for _, st := range stats {
		var entry [scrapeEntryLen]byte
		binary.BigEndian.PutUint32(entry[0:4], uint32(st.Seeders))
		binary.BigEndian.PutUint32(entry[4:8], uint32(st.Completed))
		binary.BigEndian.PutUint32(entry[8:12], uint32(st.Leechers))
		buf = append(buf, entry[:]...)
	}
	return buf
}

func EncodeErrorResponse(transactionID uint32, message string) []byte {
	buf := make([]byte, errorHeaderLen, errorHeaderLen+len(message))
	binary.BigEndian.PutUint32(buf[0:4], actionError)
	binary.BigEndian.PutUint32(buf[4:8], transactionID)
	return append(buf, message...)
}
