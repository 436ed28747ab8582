package shaderdi

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// cacheMagic / sdiMagic tag the two persisted-state artifacts spec §6
// names: the shader compile cache (keyed by cacheKey) and the
// descriptor SDI registry files produced alongside compiled shaders.
var (
	cacheMagic = [4]byte{'E', 'S', 'C', 'C'} // ESvo Cache
	sdiMagic   = [4]byte{'E', 'S', 'S', 'D'} // ESvo Sdi Data
)

const schemaVersion uint32 = 1

// CacheFile is the on-disk form of Cache: magic + schema version header,
// followed by (key, spirv) entries. Loaders fail closed — an error,
// never a zero-value cache — on a magic or version mismatch.
type CacheFile struct {
	Version uint32
	Entries map[string][]uint32
}

func (c *Cache) Snapshot() CacheFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make(map[string][]uint32, len(c.entries))
	for k, v := range c.entries {
		entries[k] = append([]uint32(nil), v...)
	}
	return CacheFile{Version: schemaVersion, Entries: entries}
}

// Encode serializes a CacheFile to its exact persisted byte layout:
// 4-byte magic, little-endian uint32 schema version, entry count, then
// per entry a length-prefixed key and a length-prefixed little-endian
// uint32 SPIR-V word array.
func (c CacheFile) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(cacheMagic[:])
	writeU32(&buf, c.Version)
	writeU32(&buf, uint32(len(c.Entries)))
	for k, v := range c.Entries {
		writeU32(&buf, uint32(len(k)))
		buf.WriteString(k)
		writeU32(&buf, uint32(len(v)))
		for _, w := range v {
			writeU32(&buf, w)
		}
	}
	return buf.Bytes()
}

// DecodeCacheFile parses the byte layout Encode produces, failing closed
// on a magic or schema-version mismatch.
func DecodeCacheFile(data []byte) (CacheFile, error) {
	r := bytes.NewReader(data)
	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != cacheMagic {
		return CacheFile{}, &ErrBadMagic{Got: magic}
	}
	version, err := readU32(r)
	if err != nil {
		return CacheFile{}, fmt.Errorf("shaderdi: truncated cache file header: %w", err)
	}
	if version != schemaVersion {
		return CacheFile{}, &ErrCacheVersionMismatch{FileVersion: version, ReaderVersion: schemaVersion}
	}
	count, err := readU32(r)
	if err != nil {
		return CacheFile{}, fmt.Errorf("shaderdi: truncated cache file entry count: %w", err)
	}
	entries := make(map[string][]uint32, count)
	for i := uint32(0); i < count; i++ {
		keyLen, err := readU32(r)
		if err != nil {
			return CacheFile{}, fmt.Errorf("shaderdi: truncated cache entry %d key length: %w", i, err)
		}
		keyBuf := make([]byte, keyLen)
		if _, err := r.Read(keyBuf); err != nil {
			return CacheFile{}, fmt.Errorf("shaderdi: truncated cache entry %d key: %w", i, err)
		}
		wordCount, err := readU32(r)
		if err != nil {
			return CacheFile{}, fmt.Errorf("shaderdi: truncated cache entry %d word count: %w", i, err)
		}
		words := make([]uint32, wordCount)
		for j := range words {
			w, err := readU32(r)
			if err != nil {
				return CacheFile{}, fmt.Errorf("shaderdi: truncated cache entry %d word %d: %w", i, j, err)
			}
			words[j] = w
		}
		entries[string(keyBuf)] = words
	}
	return CacheFile{Version: version, Entries: entries}, nil
}

// SDIFile is the persisted descriptor SDI registry for one bundle: magic
// + schema version header, UUID, and the BindingTable's text form.
type SDIFile struct {
	Version uint32
	UUID    [16]byte
	ABIText string
}

func NewSDIFile(b *Bundle) SDIFile {
	return SDIFile{Version: schemaVersion, UUID: [16]byte(b.UUID), ABIText: b.Binding.String()}
}

func (f SDIFile) Encode() []byte {
	var buf bytes.Buffer
	buf.Write(sdiMagic[:])
	writeU32(&buf, f.Version)
	buf.Write(f.UUID[:])
	writeU32(&buf, uint32(len(f.ABIText)))
	buf.WriteString(f.ABIText)
	return buf.Bytes()
}

func DecodeSDIFile(data []byte) (SDIFile, error) {
	r := bytes.NewReader(data)
	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != sdiMagic {
		return SDIFile{}, &ErrBadMagic{Got: magic}
	}
	version, err := readU32(r)
	if err != nil {
		return SDIFile{}, fmt.Errorf("shaderdi: truncated SDI file header: %w", err)
	}
	if version != schemaVersion {
		return SDIFile{}, &ErrCacheVersionMismatch{FileVersion: version, ReaderVersion: schemaVersion}
	}
	var id [16]byte
	if _, err := r.Read(id[:]); err != nil {
		return SDIFile{}, fmt.Errorf("shaderdi: truncated SDI file uuid: %w", err)
	}
	textLen, err := readU32(r)
	if err != nil {
		return SDIFile{}, fmt.Errorf("shaderdi: truncated SDI file text length: %w", err)
	}
	textBuf := make([]byte, textLen)
	if _, err := r.Read(textBuf); err != nil {
		return SDIFile{}, fmt.Errorf("shaderdi: truncated SDI file text: %w", err)
	}
	return SDIFile{Version: version, UUID: id, ABIText: string(textBuf)}, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := r.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}
