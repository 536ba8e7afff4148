package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jakegut/gohpack/config"
	"github.com/jakegut/gohpack/dump"
	"github.com/jakegut/gohpack/hpack"
	"github.com/jakegut/gohpack/http11"
	"github.com/jakegut/gohpack/http2"
	gohttp2 "golang.org/x/net/http2"
)

var errBadLine = errors.New("bad header line")

// decodeHex decodes each argument as one header block. All blocks share a
// decoder, so later blocks may reference entries added by earlier ones.
func decodeHex(cfg *config.Config, d *dump.Dumper, blocks []string) error {
	dec := cfg.NewDecoder(nil)
	defer dec.Close()

	for i, arg := range blocks {
		bs, err := hex.DecodeString(strings.Join(strings.Fields(arg), ""))
		if err != nil {
			return fmt.Errorf("block %d: %w", i+1, err)
		}
		hl, err := dec.Decode(bs)
		if err != nil {
			err = fmt.Errorf("block %d: %w", i+1, err)
			d.Error(err)
			return err
		}
		d.Incoming(uint32(i+1), hl, dec.Table())
	}
	return nil
}

// parseLine reads one header line of the -encode input:
//
//	name: value       added to the table when the index policy says so
//	!name: value      never indexed
//	@resize 256       dynamic table size update
func parseLine(line string, nameMode, valueMode hpack.Compression) (hpack.Header, error) {
	if rest, ok := strings.CutPrefix(line, "@resize"); ok {
		size, err := strconv.ParseUint(strings.TrimSpace(rest), 10, 32)
		if err != nil {
			return hpack.Header{}, fmt.Errorf("%w: %q", errBadLine, line)
		}
		return hpack.Resize(uint32(size)), nil
	}

	indexing := hpack.IndexAutomatic
	if rest, ok := strings.CutPrefix(line, "!"); ok {
		indexing = hpack.IndexNever
		line = rest
	}

	// pseudo-header names start with a colon of their own
	sep := strings.Index(line[min(1, len(line)):], ":")
	if sep < 0 {
		return hpack.Header{}, fmt.Errorf("%w: %q", errBadLine, line)
	}
	sep += min(1, len(line))
	name := strings.TrimSpace(line[:sep])
	if name == "" {
		return hpack.Header{}, fmt.Errorf("%w: %q", errBadLine, line)
	}

	h := hpack.NewHeader(name, strings.TrimSpace(line[sep+1:]))
	h.Indexing = indexing
	h.NameCompression = nameMode
	h.ValueCompression = valueMode
	return h, nil
}

// encodeLines encodes header lines from r. A blank line ends a block; lines
// starting with # are skipped.
func encodeLines(cfg *config.Config, d *dump.Dumper, r io.Reader) error {
	enc := cfg.NewEncoder(nil)
	defer enc.Close()
	nameMode, valueMode := cfg.Compressions()

	var block hpack.HeaderList
	n := 0
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		n++
		bs, err := enc.Encode(block)
		if err != nil {
			return fmt.Errorf("block %d: %w", n, err)
		}
		d.Outgoing(uint32(n), block, enc.Table())
		d.Block("->", bs)
		block = nil
		return nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, "#"):
		default:
			h, err := parseLine(line, nameMode, valueMode)
			if err != nil {
				return err
			}
			block = append(block, h)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

func decodeFramesFile(cfg *config.Config, d *dump.Dumper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decodeFrames(cfg, d, f)
}

// decodeFrames decodes every header block in a captured client-to-server
// byte stream. The capture may start with an h2c upgrade request, the client
// preface, or directly with frames.
func decodeFrames(cfg *config.Config, d *dump.Dumper, r io.Reader) error {
	br := bufio.NewReader(r)
	dec := cfg.NewDecoder(nil)
	defer dec.Close()

	for {
		head, err := br.Peek(1)
		if err != nil || head[0] < 'A' || head[0] > 'Z' {
			break
		}
		h1 := &http11.Request{}
		if err := h1.UnmarshalReader(br); err != nil {
			return err
		}
		if h1.IsPreface() {
			break
		}
		if h1.IsH2CUpgrade() {
			d.Incoming(1, http2.UpgradeHeaders(h1), dec.Table())
		}
	}

	fr := gohttp2.NewFramer(io.Discard, br)
	for {
		frame, err := fr.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch f := frame.(type) {
		case *gohttp2.HeadersFrame:
			block, err := http2.ReadHeaderBlock(fr, f)
			if err != nil {
				return err
			}
			if cfg.Logger.Verbose {
				d.Block("<-", block.Bytes())
			}
			hl, err := dec.DecodeHeaderList(block)
			if err != nil {
				err = fmt.Errorf("stream %d: %w", f.StreamID, err)
				d.Error(err)
				return err
			}
			d.Incoming(f.StreamID, hl, dec.Table())
		default:
			if cfg.Logger.Verbose {
				log.Printf("skipping %v", frame.Header())
			}
		}
	}
}
