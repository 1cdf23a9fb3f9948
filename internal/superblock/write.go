package superblock

import (
	"fmt"

	binpkg "github.com/robert-malhotra/h5pipe/internal/binary"
)

// Size returns the encoded size of a v2/v3 superblock.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Encode returns the v2/v3 encoding of sb, checksum included.
func (sb *Superblock) Encode() ([]byte, error) {
	if !sb.Writable() {
		return nil, fmt.Errorf("%w: version %d cannot be written", ErrUnsupportedVersion, sb.Version)
	}
	w, buf := binpkg.NewBufferWriter(sb.Config(), sb.Size())

	if err := w.WriteBytes(Signature); err != nil {
		return nil, err
	}
	for _, b := range []uint8{sb.Version, sb.OffsetSize, sb.LengthSize, sb.FileConsistencyFlags} {
		if err := w.WriteUint8(b); err != nil {
			return nil, err
		}
	}
	for _, addr := range []uint64{sb.BaseAddress, sb.ExtensionAddress, sb.EOFAddress, sb.RootGroupAddress} {
		if err := w.WriteOffset(addr); err != nil {
			return nil, err
		}
	}
	if err := w.WriteUint32(binpkg.Lookup3Checksum(buf.Bytes())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes sb at its FileOffset.
func (sb *Superblock) Write(w *binpkg.Writer) error {
	data, err := sb.Encode()
	if err != nil {
		return err
	}
	return w.At(sb.FileOffset).WriteBytes(data)
}
