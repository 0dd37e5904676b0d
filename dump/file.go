package dump

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
)

// MaxLineSize bounds a single dump line. OpenLibrary records with long
// descriptions or edition lists run to several megabytes.
const MaxLineSize = 64 * 1024 * 1024

type Line struct {
	Number int
	Text   string
}

// File is a dump opened for a single forward pass.
type File struct {
	path    string
	file    *os.File
	reader  io.Reader
	closers []func() error
}

// Open opens a dump file, decompressing .gz and .zst files on the fly.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	df := &File{
		path:   path,
		file:   f,
		reader: f,
	}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		df.reader = gz
		df.closers = append(df.closers, gz.Close)

	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
		}
		df.reader = zr
		df.closers = append(df.closers, func() error {
			zr.Close()
			return nil
		})
	}

	return df, nil
}

// Lines yields each line of the dump in order. A read error is yielded once
// and ends the sequence; the file can't be rewound, so a second call continues
// from wherever the first stopped.
func (f *File) Lines() iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		scanner := bufio.NewScanner(f.reader)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

		number := 0
		for scanner.Scan() {
			number++
			if !yield(Line{Number: number, Text: scanner.Text()}, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Line{Number: number + 1}, fmt.Errorf("reading %s: %w", f.path, err))
		}
	}
}

func (f *File) Close() error {
	errs := []error{}

	for i := len(f.closers) - 1; i >= 0; i-- {
		errs = append(errs, f.closers[i]())
	}
	errs = append(errs, f.file.Close())

	return errors.Join(errs...)
}

// CountLines counts the lines in a dump, including a final line with no
// trailing newline.
func CountLines(path string) (int, error) {
	f, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, 32*1024)
	count := 0
	last := byte('\n')
	lineSep := []byte{'\n'}

	for {
		c, err := f.reader.Read(buf)
		if c > 0 {
			count += bytes.Count(buf[:c], lineSep)
			last = buf[c-1]
		}

		switch {
		case err == io.EOF:
			if last != '\n' {
				count++
			}
			return count, nil

		case err != nil:
			return 0, err
		}
	}
}
