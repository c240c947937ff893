package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"sandbox-server/internal/domain"
)

func (s *TapeService) Load(path string) (*domain.ReplaySession, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readBinary(f)
}

func readBinary(r io.Reader) (*domain.ReplaySession, error) {
	var header TapeFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("invalid magic")
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}

	session := &domain.ReplaySession{
		Seed:      header.Seed,
		Timestamp: header.Timestamp,
	}

	if header.WorldNameLen > 0 {
		nameBuf := make([]byte, header.WorldNameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, fmt.Errorf("failed to read world name: %w", err)
		}
		session.WorldName = string(nameBuf)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(&session.Requests); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}
	if len(session.Requests) != int(header.RequestCount) {
		return nil, fmt.Errorf("request count mismatch: header %d, body %d",
			header.RequestCount, len(session.Requests))
	}
	return session, nil
}
