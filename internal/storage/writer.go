package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"sandbox-server/internal/domain"
)

const (
	// Магия файла ленты реплея, 4 байта
	MagicHeader string = `SBRP`
	Version1    uint32 = 1
)

// TapeFileHeader - точное представление заголовка файла в памяти.
// binary.Write пишет его целиком: только массивы и числа, без строк.
// Заголовок не сжимается - инструменты могут читать метаданные, не
// распаковывая тело.
type TapeFileHeader struct {
	Magic        [4]byte
	Version      uint32
	Seed         int64
	Timestamp    int64
	WorldNameLen uint16
	RequestCount int32
}

// TapeService сохраняет и загружает ленты запросов (.sbrp).
// Тело ленты - JSON запросов, сжатый zstd: параметры запросов
// произвольной формы, бинарная упаковка их не окупает.
type TapeService struct {
	SaveDir string
}

func NewTapeService(dir string) *TapeService {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		_ = os.MkdirAll(dir, 0755)
	}
	return &TapeService{SaveDir: dir}
}

func (s *TapeService) Save(session *domain.ReplaySession) (string, error) {
	filename := fmt.Sprintf("tape_%d_%d.sbrp", session.Seed, session.Timestamp)
	path := filepath.Join(s.SaveDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := writeBinary(f, session); err != nil {
		return "", err
	}
	return path, nil
}

func writeBinary(w io.Writer, s *domain.ReplaySession) error {
	nameBytes := []byte(s.WorldName)
	if len(nameBytes) > 65535 {
		return fmt.Errorf("world name too long: %d", len(nameBytes))
	}

	header := TapeFileHeader{
		Version:      Version1,
		Seed:         s.Seed,
		Timestamp:    s.Timestamp,
		WorldNameLen: uint16(len(nameBytes)),
		RequestCount: int32(len(s.Requests)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(nameBytes); err != nil {
		return err
	}

	// Тело: сжатый JSON запросов
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd init: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(s.Requests); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode requests: %w", err)
	}
	return enc.Close()
}
