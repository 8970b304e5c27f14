package wasmbin

import (
	"bytes"
	"errors"
	"fmt"
)

// Import is one entry of a binary's import section.
type Import struct {
	Module string
	Name   string
	Kind   byte
}

// ReadImports lists the imports of a binary module in declaration order.
// Only the import section is decoded; the rest of the binary is skipped
// section by section.
func ReadImports(bin []byte) ([]Import, error) {
	if !bytes.HasPrefix(bin, magic) {
		return nil, errors.New("wasmbin: missing magic header or version")
	}
	r := &reader{b: bin[len(magic):]}

	for r.len() > 0 {
		id, err := r.byte()
		if err != nil {
			return nil, err
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		body, err := r.take(size)
		if err != nil {
			return nil, fmt.Errorf("wasmbin: section %d: %w", id, err)
		}
		if id == sectionImport {
			return readImportSection(&reader{b: body})
		}
	}
	return nil, nil
}

func readImportSection(r *reader) ([]Import, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	imports := make([]Import, 0, n)
	for i := uint32(0); i < n; i++ {
		module, err := r.name()
		if err != nil {
			return nil, err
		}
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		if err := r.skipImportDesc(kind); err != nil {
			return nil, fmt.Errorf("wasmbin: import %s.%s: %w", module, name, err)
		}
		imports = append(imports, Import{Module: module, Name: name, Kind: kind})
	}
	return imports, nil
}

type reader struct {
	b []byte
}

var errTruncated = errors.New("unexpected end of input")

func (r *reader) len() int { return len(r.b) }

func (r *reader) byte() (byte, error) {
	if len(r.b) == 0 {
		return 0, errTruncated
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v, nil
}

func (r *reader) take(n uint32) ([]byte, error) {
	if uint64(n) > uint64(len(r.b)) {
		return nil, errTruncated
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v, nil
}

// u32 reads unsigned LEB128.
func (r *reader) u32() (uint32, error) {
	var v uint32
	for shift := uint(0); shift < 35; shift += 7 {
		byt, err := r.byte()
		if err != nil {
			return 0, err
		}
		v |= uint32(byt&0x7F) << shift
		if byt&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errors.New("LEB128 value overflows u32")
}

func (r *reader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) limits() error {
	flags, err := r.byte()
	if err != nil {
		return err
	}
	if _, err := r.u32(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		_, err = r.u32()
	}
	return err
}

func (r *reader) skipImportDesc(kind byte) error {
	switch kind {
	case KindFunc:
		_, err := r.u32()
		return err
	case KindTable:
		if _, err := r.byte(); err != nil {
			return err
		}
		return r.limits()
	case KindMemory:
		return r.limits()
	case KindGlobal:
		_, err := r.take(2)
		return err
	case KindTag:
		if _, err := r.byte(); err != nil {
			return err
		}
		_, err := r.u32()
		return err
	}
	return fmt.Errorf("unknown import kind 0x%02x", kind)
}
