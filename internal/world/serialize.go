package world

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/RobertLeahy/MCPP-sub000/internal/protocol"
)

// sectionHeight is the vertical extent of one chunk section, the unit the
// primary/add bitmasks address (spec §6 chunk_data).
const sectionHeight = 16
const sectionsPerColumn = ColumnHeight / sectionHeight

// encodeSections packs every non-empty 16x16x16 section's block
// type/metadata/light/skylight arrays back to back, lowest section (mask
// bit 0) first, and returns the bitmask of sections present alongside the raw
// bytes — the pre-compression payload chunk_data's "compressed" field
// carries.
func encodeSections(col *Column) (mask uint16, raw []byte) {
	var buf bytes.Buffer
	for section := 0; section < sectionsPerColumn; section++ {
		if !sectionPresent(col, section) {
			continue
		}
		mask |= 1 << uint(section)
		writeSectionBlockTypes(&buf, col, section)
		writeSectionMetadata(&buf, col, section)
		writeSectionLight(&buf, col, section)
		writeSectionSkylight(&buf, col, section)
	}
	writeBiomes(&buf, col)
	return mask, buf.Bytes()
}

// sectionPresent reports whether any block in the section differs from
// the zero block — an empty section is omitted from the wire entirely,
// matching the real protocol's sparse column encoding.
func sectionPresent(col *Column, section int) bool {
	base := section * sectionHeight
	for x := 0; x < ColumnWidth; x++ {
		for z := 0; z < ColumnDepth; z++ {
			for y := base; y < base+sectionHeight; y++ {
				if col.blocks[blockIndex(x, y, z)] != (Block{}) {
					return true
				}
			}
		}
	}
	return false
}

func writeSectionBlockTypes(buf *bytes.Buffer, col *Column, section int) {
	base := section * sectionHeight
	for y := base; y < base+sectionHeight; y++ {
		for z := 0; z < ColumnDepth; z++ {
			for x := 0; x < ColumnWidth; x++ {
				t := col.blocks[blockIndex(x, y, z)].Type
				buf.WriteByte(byte(t))
				buf.WriteByte(byte(t >> 8))
			}
		}
	}
}

// nibblePack packs two 4-bit lanes per byte, low nibble first, as the
// real wire format does for metadata/light/skylight arrays.
func nibblePack(buf *bytes.Buffer, col *Column, section int, lane func(Block) uint8) {
	base := section * sectionHeight
	for y := base; y < base+sectionHeight; y++ {
		for z := 0; z < ColumnDepth; z++ {
			for x := 0; x < ColumnWidth; x += 2 {
				lo := lane(col.blocks[blockIndex(x, y, z)]) & 0x0F
				hi := lane(col.blocks[blockIndex(x+1, y, z)]) & 0x0F
				buf.WriteByte(lo | (hi << 4))
			}
		}
	}
}

func writeSectionMetadata(buf *bytes.Buffer, col *Column, section int) {
	nibblePack(buf, col, section, func(b Block) uint8 { return b.Metadata })
}

func writeSectionLight(buf *bytes.Buffer, col *Column, section int) {
	nibblePack(buf, col, section, func(b Block) uint8 { return b.Light })
}

func writeSectionSkylight(buf *bytes.Buffer, col *Column, section int) {
	nibblePack(buf, col, section, func(b Block) uint8 { return b.Skylight })
}

func writeBiomes(buf *bytes.Buffer, col *Column) {
	buf.Write(col.biomes[:])
}

// SerializeColumn returns col's raw (uncompressed) section payload plus
// its section bitmask, the form the maintenance save pass hands to the
// backing-store collaborator. It is deliberately uncompressed: the
// backing store is free to apply its own compression, and callers that
// need the wire form should use ChunkDataPacket instead.
func SerializeColumn(col *Column) (mask uint16, raw []byte) {
	col.mu.Lock()
	defer col.mu.Unlock()
	return encodeSections(col)
}

// readSectionBlockTypes is the inverse of writeSectionBlockTypes.
func readSectionBlockTypes(r *bytes.Reader, blocks *[blockCount]Block, section int) error {
	base := section * sectionHeight
	for y := base; y < base+sectionHeight; y++ {
		for z := 0; z < ColumnDepth; z++ {
			for x := 0; x < ColumnWidth; x++ {
				lo, err := r.ReadByte()
				if err != nil {
					return err
				}
				hi, err := r.ReadByte()
				if err != nil {
					return err
				}
				blocks[blockIndex(x, y, z)].Type = uint16(lo) | uint16(hi)<<8
			}
		}
	}
	return nil
}

// nibbleUnpack is the inverse of nibblePack.
func nibbleUnpack(r *bytes.Reader, blocks *[blockCount]Block, section int, set func(*Block, uint8)) error {
	base := section * sectionHeight
	for y := base; y < base+sectionHeight; y++ {
		for z := 0; z < ColumnDepth; z++ {
			for x := 0; x < ColumnWidth; x += 2 {
				b, err := r.ReadByte()
				if err != nil {
					return err
				}
				set(&blocks[blockIndex(x, y, z)], b&0x0F)
				set(&blocks[blockIndex(x+1, y, z)], (b>>4)&0x0F)
			}
		}
	}
	return nil
}

// DeserializeColumn is the inverse of encodeSections (what SerializeColumn
// calls): given the section bitmask and raw payload a backing-store load
// returned, it rebuilds the column's block and biome arrays. A section
// absent from mask is left zero-valued, matching the sparse encoding
// SerializeColumn produces for an all-default section.
func DeserializeColumn(mask uint16, raw []byte) (blocks [blockCount]Block, biomes [biomeCount]byte, err error) {
	r := bytes.NewReader(raw)
	for section := 0; section < sectionsPerColumn; section++ {
		if mask&(1<<uint(section)) == 0 {
			continue
		}
		if err = readSectionBlockTypes(r, &blocks, section); err != nil {
			return
		}
		if err = nibbleUnpack(r, &blocks, section, func(b *Block, v uint8) { b.Metadata = v }); err != nil {
			return
		}
		if err = nibbleUnpack(r, &blocks, section, func(b *Block, v uint8) { b.Light = v }); err != nil {
			return
		}
		if err = nibbleUnpack(r, &blocks, section, func(b *Block, v uint8) { b.Skylight = v }); err != nil {
			return
		}
	}
	if _, err = io.ReadFull(r, biomes[:]); err != nil {
		return
	}
	return blocks, biomes, nil
}

// EncodeColumnPayload prefixes raw with mask as two big-endian bytes so
// the section bitmask survives the round trip through the backing store
// alongside the payload it describes.
func EncodeColumnPayload(mask uint16, raw []byte) []byte {
	out := make([]byte, 2+len(raw))
	out[0] = byte(mask >> 8)
	out[1] = byte(mask)
	copy(out[2:], raw)
	return out
}

// DecodeColumnPayload is the inverse of EncodeColumnPayload.
func DecodeColumnPayload(data []byte) (mask uint16, raw []byte, err error) {
	if len(data) < 2 {
		return 0, nil, fmt.Errorf("world: column payload too short (%d bytes)", len(data))
	}
	mask = uint16(data[0])<<8 | uint16(data[1])
	return mask, data[2:], nil
}

// ChunkDataPacket builds the clientbound chunk_data packet for col,
// compressing the section payload with DEFLATE (spec §6 "compressed_len
// precedes compressed").
func ChunkDataPacket(col *Column, groupedUp bool) (*protocol.Packet, error) {
	col.mu.Lock()
	mask, raw := encodeSections(col)
	col.mu.Unlock()

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("world: compress chunk data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("world: compress chunk data: %w", err)
	}

	spec, err := protocol.Lookup(protocol.Play, protocol.Clientbound, 0x33)
	if err != nil {
		return nil, err
	}
	p := protocol.NewPacket(spec)
	p.SetInt32("x", col.ID.X)
	p.SetInt32("z", col.ID.Z)
	p.SetBool("group_up", groupedUp)
	p.SetUint16("primary_mask", mask)
	p.SetUint16("add_mask", 0)
	p.SetInt32("compressed_len", int32(compressed.Len()))
	p.SetBytes("compressed", compressed.Bytes())
	return p, nil
}

// UnloadColumnPacket builds the clientbound chunk_data packet telling a
// client to discard a column it was subscribed to: empty masks and an
// empty compressed payload (spec §4.5 "On unsubscribe (non-force), send
// the unload packet").
func UnloadColumnPacket(id ColumnID) (*protocol.Packet, error) {
	spec, err := protocol.Lookup(protocol.Play, protocol.Clientbound, 0x33)
	if err != nil {
		return nil, err
	}
	p := protocol.NewPacket(spec)
	p.SetInt32("x", id.X)
	p.SetInt32("z", id.Z)
	p.SetBool("group_up", true)
	p.SetUint16("primary_mask", 0)
	p.SetUint16("add_mask", 0)
	p.SetInt32("compressed_len", 0)
	p.SetBytes("compressed", nil)
	return p, nil
}

// BlockChangePacket builds the clientbound block_change packet announcing
// a single cell mutation at the given world (not in-column) coordinates.
func BlockChangePacket(id ColumnID, x, y, z int, b Block) (*protocol.Packet, error) {
	spec, err := protocol.Lookup(protocol.Play, protocol.Clientbound, 0x35)
	if err != nil {
		return nil, err
	}
	p := protocol.NewPacket(spec)
	p.SetInt32("x", id.X*ColumnWidth+int32(x))
	p.SetUint8("y", uint8(y))
	p.SetInt32("z", id.Z*ColumnDepth+int32(z))
	p.SetVarInt32("block_type", uint32(b.Type))
	p.SetUint8("block_meta", b.Metadata)
	return p, nil
}
