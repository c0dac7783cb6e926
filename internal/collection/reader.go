package collection

import (
	"bufio"
	"io"
	"os"
	"sort"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

// listInputFiles returns the regular files of dir sorted by name.
// Sub-directories are not descended into.
func listInputFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.DirectoryNotFoundError(dir)
		}
		return nil, errors.IOError("stat input directory", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.DirectoryNotFoundError(dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.IOError("listing input directory", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// lineReader yields the lines of a file without a length limit.
type lineReader struct {
	r      *bufio.Reader
	lineNo int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 1<<20)}
}

// Next returns the next line without its terminator. It returns io.EOF
// once the input is exhausted; a final unterminated line is still returned.
func (lr *lineReader) Next() ([]byte, error) {
	line, err := lr.r.ReadBytes('\n')
	if len(line) > 0 {
		lr.lineNo++
		line = line[:len(line)-trailingNewline(line)]
		return line, nil
	}
	return nil, err
}

// LineNo is the 1-based number of the last line returned.
func (lr *lineReader) LineNo() int {
	return lr.lineNo
}

func trailingNewline(line []byte) int {
	n := 0
	if len(line) > 0 && line[len(line)-1] == '\n' {
		n++
		if len(line) > 1 && line[len(line)-2] == '\r' {
			n++
		}
	}
	return n
}
