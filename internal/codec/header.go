// Package codec implements spec.md §4.2 Header Codec: the fixed
// type-guid || instance-guid || version prefix written at offset 0 of
// every replica block, grounded on the container-superblock
// parse-and-validate-magic pattern used throughout the reference corpus
// (e.g. container.NewContainerSuperblockReader), adapted from a
// variable-length APFS object header to the Manager's fixed 36-byte
// header.
package codec

import (
	"encoding/binary"
	"fmt"
)

// GUIDLen is the length in bytes of a type or instance GUID.
const GUIDLen = 16

// HeaderLen is the fixed on-disk header length: spec.md §6 kHeaderLen.
const HeaderLen = GUIDLen + GUIDLen + 4

// TypeGUID is the fixed 16-byte magic identifying the on-disk format:
// spec.md §6 kTypeGuid. The exact bytes are a project constant; any value
// works as long as every replica and reader agree, so this implementation
// picks a fixed, arbitrary 16-byte value distinct from an all-zero or
// all-random-looking pattern so a corrupted/unformatted block is unlikely
// to collide with it by chance.
var TypeGUID = [GUIDLen]byte{
	0x7a, 0x78, 0x76, 0x6f, 0x6c, 0x31, 0x00, 0x01,
	0x53, 0x42, 0x48, 0x44, 0x52, 0xc0, 0xff, 0xee,
}

// Header is the parsed contents of the fixed header prefix.
type Header struct {
	TypeGUID     [GUIDLen]byte
	InstanceGUID [GUIDLen]byte
	Version      uint32
}

// Encode writes the header prefix into the first HeaderLen bytes of
// block. block must be at least HeaderLen bytes long.
func Encode(block []byte, instanceGUID [GUIDLen]byte, version uint32) error {
	if len(block) < HeaderLen {
		return fmt.Errorf("codec: block too small for header: have %d, need %d", len(block), HeaderLen)
	}
	copy(block[0:GUIDLen], TypeGUID[:])
	copy(block[GUIDLen:2*GUIDLen], instanceGUID[:])
	binary.BigEndian.PutUint32(block[2*GUIDLen:HeaderLen], version)
	return nil
}

// Decode parses the header prefix from block and validates the type GUID.
// A type-GUID mismatch is reported distinctly from a too-short buffer so
// callers can classify it as "not a volume" per spec.md §3.
func Decode(block []byte) (*Header, error) {
	if len(block) < HeaderLen {
		return nil, fmt.Errorf("codec: block too small for header: have %d, need %d", len(block), HeaderLen)
	}
	var h Header
	copy(h.TypeGUID[:], block[0:GUIDLen])
	copy(h.InstanceGUID[:], block[GUIDLen:2*GUIDLen])
	h.Version = binary.BigEndian.Uint32(block[2*GUIDLen : HeaderLen])
	if h.TypeGUID != TypeGUID {
		return nil, ErrNotAVolume
	}
	return &h, nil
}

// ErrNotAVolume is returned by Decode when the type GUID doesn't match,
// meaning the block doesn't hold a Manager-formatted header.
var ErrNotAVolume = fmt.Errorf("codec: block does not start with the expected type GUID")
