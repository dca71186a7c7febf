package block

import "fmt"

// parseUDTTable reads the type table at the front of a decompressed
// block payload and returns the remaining bytes after it.
func parseUDTTable(b []byte) ([]UDT, []byte, error) {
	count, b, err := readU32(b)
	if err != nil {
		return nil, nil, fmt.Errorf("udt table header: %w", err)
	}
	udts := make([]UDT, 0, count)
	for i := uint32(0); i < count; i++ {
		var name string
		name, b, err = readString(b)
		if err != nil {
			return nil, nil, fmt.Errorf("udt %d name: %w", i, err)
		}
		var fieldCount uint32
		fieldCount, b, err = readU32(b)
		if err != nil {
			return nil, nil, fmt.Errorf("udt %d field count: %w", i, err)
		}
		fields := make([]UDTField, 0, fieldCount)
		for j := uint32(0); j < fieldCount; j++ {
			var fname string
			fname, b, err = readString(b)
			if err != nil {
				return nil, nil, fmt.Errorf("udt %d field %d name: %w", i, j, err)
			}
			if len(b) < 1 {
				return nil, nil, fmt.Errorf("udt %d field %d: truncated type tag", i, j)
			}
			ftype := FieldType(b[0])
			b = b[1:]
			var offset, size uint32
			offset, b, err = readU32(b)
			if err != nil {
				return nil, nil, fmt.Errorf("udt %d field %d offset: %w", i, j, err)
			}
			size, b, err = readU32(b)
			if err != nil {
				return nil, nil, fmt.Errorf("udt %d field %d size: %w", i, j, err)
			}
			fields = append(fields, UDTField{Name: fname, Type: ftype, Offset: offset, Size: size})
		}
		udts = append(udts, UDT{Name: name, Fields: fields})
	}
	return udts, b, nil
}

func buildTypeDict(udts []UDT) TypeDict {
	d := make(TypeDict, len(udts))
	for _, u := range udts {
		d[u.Name] = u
	}
	return d
}

func parseDepsTable(b []byte) ([][]byte, []byte, error) {
	count, b, err := readU32(b)
	if err != nil {
		return nil, nil, fmt.Errorf("deps table header: %w", err)
	}
	deps := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		var blob []byte
		blob, b, err = readBlob(b)
		if err != nil {
			return nil, nil, fmt.Errorf("dep %d: %w", i, err)
		}
		deps = append(deps, blob)
	}
	return deps, b, nil
}
