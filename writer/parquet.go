package writer

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	"bookflow/journal"
)

// ParquetRecord is one order book level of a closing snapshot in columnar
// form, one row per price level.
type ParquetRecord struct {
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Side      string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Amount    float64 `parquet:"name=amount, type=DOUBLE"`
	Count     int64   `parquet:"name=count, type=INT64"`
	Level     int32   `parquet:"name=level, type=INT32"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory
// writing, so a file never has to touch disk before upload.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "lzo":
		return parquet.CompressionCodec_LZO
	}
	return parquet.CompressionCodec_UNCOMPRESSED
}

// orderedLevels sorts a snapshot side from the top of the book outward:
// bids descending by price, asks ascending. The slice index gives the
// level rank.
func orderedLevels(side string, levels map[string]journal.Level) []journal.Level {
	ordered := make([]journal.Level, 0, len(levels))
	for _, lvl := range levels {
		ordered = append(ordered, lvl)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if side == "bid" {
			return ordered[i].Price.GreaterThan(ordered[j].Price)
		}
		return ordered[i].Price.LessThan(ordered[j].Price)
	})
	return ordered
}

// buildParquet renders the closing snapshot of a flushed record as a
// parquet file in memory. Bids and asks are flattened into rows tagged
// with their side.
func buildParquet(rec journal.Record, compression string) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := parquetwriter.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	writeSide := func(side string, levels map[string]journal.Level) error {
		for rank, lvl := range orderedLevels(side, levels) {
			price, _ := lvl.Price.Float64()
			amount, _ := lvl.Amount.Float64()
			row := ParquetRecord{
				Symbol:    rec.Symbol,
				Timestamp: rec.Key,
				Side:      side,
				Price:     price,
				Amount:    amount,
				Count:     lvl.Count,
				Level:     int32(rank + 1),
			}
			if err := pw.Write(row); err != nil {
				return fmt.Errorf("failed to write parquet record: %w", err)
			}
		}
		return nil
	}

	if rec.Closing != nil {
		if err := writeSide("bid", rec.Closing.Bids); err != nil {
			pw.WriteStop()
			return nil, err
		}
		if err := writeSide("ask", rec.Closing.Asks); err != nil {
			pw.WriteStop()
			return nil, err
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return fw.Bytes(), nil
}
