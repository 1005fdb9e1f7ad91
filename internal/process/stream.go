package process

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"unicode/utf8"

	"github.com/libershare/launcher/internal/metrics"
)

const readBufferSize = 64 * 1024

// maxLineLength bounds a forwarded line. Longer output is split into
// consecutive lines of at most this many bytes, cut on rune boundaries.
const maxLineLength = readBufferSize

// read forwards newline-delimited output from r to sink until the stream
// closes. A trailing fragment without a newline is forwarded at EOF. Lines that
// are not valid UTF-8 are dropped.
func (b *Backend) read(stream Stream, r *os.File, sink Sink) {
	defer b.readers.Done()
	defer func() { _ = r.Close() }()

	name := b.spec.label()
	br := bufio.NewReaderSize(r, readBufferSize)
	var line []byte
	for {
		frag, err := br.ReadSlice('\n')
		line = append(line, frag...)
		if errors.Is(err, bufio.ErrBufferFull) {
			for len(line) > maxLineLength {
				cut := lineCut(line, maxLineLength)
				b.forward(name, stream, sink, line[:cut])
				line = append(line[:0], line[cut:]...)
			}
			continue
		}
		if err == nil || len(line) > 0 {
			text := bytes.TrimRight(line, "\r\n")
			for len(text) > maxLineLength {
				cut := lineCut(text, maxLineLength)
				b.forward(name, stream, sink, text[:cut])
				text = text[cut:]
			}
			b.forward(name, stream, sink, text)
		}
		line = line[:0]
		if err != nil {
			return
		}
	}
}

func (b *Backend) forward(name string, stream Stream, sink Sink, text []byte) {
	if !utf8.Valid(text) {
		metrics.IncDroppedLine(name, string(stream), "decode")
		b.logger.Debug("dropped undecodable output line", "stream", string(stream), "bytes", len(text))
		return
	}
	sink.Publish(LogLine{Stream: stream, Text: string(text)})
	metrics.IncLine(name, string(stream))
}

// lineCut returns the split point for p at or below limit that does not fall
// inside a multi-byte rune. Bytes that never start a rune are cut at limit.
func lineCut(p []byte, limit int) int {
	for cut := limit; cut > 0 && cut > limit-utf8.UTFMax; cut-- {
		if utf8.RuneStart(p[cut]) {
			return cut
		}
	}
	return limit
}
