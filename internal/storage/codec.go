package storage

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Codec упаковывает снимки слоёв: JSON, затем zstd.
// Безопасен для параллельного использования.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec создаёт кодек. level — fastest, default, better или best.
func NewCodec(level string) (*Codec, error) {
	ok, encLevel := zstd.EncoderLevelFromString(level)
	if !ok {
		return nil, fmt.Errorf("неизвестный уровень zstd %q", level)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode возвращает упакованный снимок и размер до сжатия
func (c *Codec) Encode(snap *Snapshot) ([]byte, int, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка сериализации слоя: %w", err)
	}
	return c.enc.EncodeAll(raw, nil), len(raw), nil
}

// Decode распаковывает снимок
func (c *Codec) Decode(packed []byte) (*Snapshot, error) {
	raw, err := c.dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки слоя: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("ошибка десериализации слоя: %w", err)
	}
	return &snap, nil
}

// Close освобождает ресурсы zstd
func (c *Codec) Close() {
	c.enc.Close()
	c.dec.Close()
}
