package collection

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf16"

	"github.com/ricesearch/irtools/internal/pkg/errors"
	"github.com/ricesearch/irtools/internal/pkg/hash"
)

// ShardFileName returns the file name of shard index, e.g. docs00.json.
func ShardFileName(index int) string {
	return fmt.Sprintf("docs%02d.json", index)
}

// ShardInfo describes one finished shard file.
type ShardInfo struct {
	File      string `json:"file"`
	Index     int    `json:"index"`
	FirstID   int    `json:"first_id"`
	Documents int    `json:"documents"`
	Bytes     int64  `json:"bytes"`
	SHA256    string `json:"sha256"`
}

// shardWriter appends output documents to a single shard file.
type shardWriter struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	hasher *hash.Writer
	line   []byte
	info   ShardInfo
}

func openShard(dir string, index, firstID int) (*shardWriter, error) {
	name := ShardFileName(index)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.IOError("creating shard", path, err)
	}

	hasher := hash.NewWriter(f)
	buf := bufio.NewWriterSize(hasher, 256*1024)

	return &shardWriter{
		path:   path,
		file:   f,
		buf:    buf,
		hasher: hasher,
		info: ShardInfo{
			File:    name,
			Index:   index,
			FirstID: firstID,
		},
	}, nil
}

// Write appends doc as one JSON line.
func (s *shardWriter) Write(doc OutputDocument) error {
	s.line = appendDocument(s.line[:0], doc)
	if _, err := s.buf.Write(s.line); err != nil {
		return errors.IOError("writing shard", s.path, err)
	}
	s.info.Documents++
	return nil
}

// Close flushes and closes the file and returns its final description.
func (s *shardWriter) Close() (ShardInfo, error) {
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return ShardInfo{}, errors.IOError("flushing shard", s.path, err)
	}
	if err := s.file.Close(); err != nil {
		return ShardInfo{}, errors.IOError("closing shard", s.path, err)
	}

	s.info.Bytes = s.hasher.Size()
	s.info.SHA256 = s.hasher.Sum()
	return s.info, nil
}

// abort closes the file without reporting errors; used when a run fails.
func (s *shardWriter) abort() {
	_ = s.buf.Flush()
	_ = s.file.Close()
}

// appendDocument encodes doc as {"id": N, "contents": "..."} followed by a
// newline. Separators carry a space after ',' and ':' and every character
// outside printable ASCII is written as a \uXXXX escape, the layout Python's
// json.dumps produces by default.
func appendDocument(dst []byte, doc OutputDocument) []byte {
	dst = append(dst, `{"id": `...)
	dst = strconv.AppendInt(dst, int64(doc.ID), 10)
	dst = append(dst, `, "contents": `...)
	dst = appendASCIIString(dst, doc.Contents)
	return append(dst, "}\n"...)
}

const hexDigits = "0123456789abcdef"

func appendASCIIString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for _, r := range s {
		switch {
		case r == '"':
			dst = append(dst, '\\', '"')
		case r == '\\':
			dst = append(dst, '\\', '\\')
		case r == '\n':
			dst = append(dst, '\\', 'n')
		case r == '\r':
			dst = append(dst, '\\', 'r')
		case r == '\t':
			dst = append(dst, '\\', 't')
		case r == '\b':
			dst = append(dst, '\\', 'b')
		case r == '\f':
			dst = append(dst, '\\', 'f')
		case r >= 0x20 && r < 0x7f:
			dst = append(dst, byte(r))
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			dst = appendUnicodeEscape(dst, hi)
			dst = appendUnicodeEscape(dst, lo)
		default:
			dst = appendUnicodeEscape(dst, r)
		}
	}
	return append(dst, '"')
}

func appendUnicodeEscape(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[r>>12&0xf], hexDigits[r>>8&0xf], hexDigits[r>>4&0xf], hexDigits[r&0xf])
}
