package dump

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jakegut/gohpack/hpack"
)

var (
	prefixColor   = color.New()
	titleColor    = color.New(color.FgCyan)
	streamIdColor = color.New(color.FgCyan)
	flagColor     = color.New(color.FgGreen)
	keyColor      = color.New(color.FgBlue)
	valueColor    = color.New()
	sensitive     = color.New(color.FgRed)
	errorColor    = color.New(color.FgRed, color.Bold)
)

// Dumper renders decoded header blocks and table state for a terminal.
type Dumper struct {
	w io.Writer

	// ShowTable adds the dynamic table after every block.
	ShowTable bool
	// ShowRepresentation tags every field with how it was sent.
	ShowRepresentation bool
}

func New(w io.Writer) *Dumper {
	return &Dumper{w: w}
}

// Incoming renders a block received on streamID.
func (d *Dumper) Incoming(streamID uint32, hl hpack.HeaderList, table *hpack.Table) {
	d.block("<-", streamID, hl, table)
}

// Outgoing renders a block sent on streamID.
func (d *Dumper) Outgoing(streamID uint32, hl hpack.HeaderList, table *hpack.Table) {
	d.block("->", streamID, hl, table)
}

func (d *Dumper) block(prefix string, streamID uint32, hl hpack.HeaderList, table *hpack.Table) {
	prefixColor.Fprintf(d.w, "%v ", prefix)
	titleColor.Fprintf(d.w, "HEADERS")
	streamIdColor.Fprintf(d.w, "(%v)\n", streamID)
	d.Headers(hl)
	if d.ShowTable && table != nil {
		d.Table(table)
	}
	fmt.Fprintln(d.w)
}

// Headers renders hl one field per line.
func (d *Dumper) Headers(hl hpack.HeaderList) {
	if len(hl) == 0 {
		keyColor.Fprintf(d.w, "    {empty}\n")
		return
	}
	for _, header := range hl {
		keyColor.Fprintf(d.w, "    %v:", header.Name)
		if header.Sensitive() {
			sensitive.Fprintf(d.w, " %v", header.Value)
		} else {
			valueColor.Fprintf(d.w, " %v", header.Value)
		}
		if d.ShowRepresentation {
			flagColor.Fprintf(d.w, "  [%v", header.Indexing)
			if header.Indexing != hpack.IndexExisting {
				flagColor.Fprintf(d.w, ", name %v, value %v", header.NameCompression, header.ValueCompression)
			}
			flagColor.Fprintf(d.w, "]")
		}
		fmt.Fprintln(d.w)
	}
}

// Table renders the dynamic table, newest entry first.
func (d *Dumper) Table(table *hpack.Table) {
	titleColor.Fprintf(d.w, "    dynamic table")
	flagColor.Fprintf(d.w, " (%d entries, %d/%d bytes)\n", table.Count(), table.Size(), table.MaxSize())
	for i, h := range table.Entries() {
		prefixColor.Fprintf(d.w, "    [%d] ", i+1)
		flagColor.Fprintf(d.w, "(s = %d) ", h.Size())
		keyColor.Fprintf(d.w, "%v:", h.Name)
		valueColor.Fprintf(d.w, " %v\n", h.Value)
	}
}

// Block renders the raw bytes of a header block.
func (d *Dumper) Block(prefix string, bs []byte) {
	prefixColor.Fprintf(d.w, "%v ", prefix)
	titleColor.Fprintf(d.w, "BLOCK")
	flagColor.Fprintf(d.w, " {%v bytes}\n", len(bs))
	valueColor.Fprintf(d.w, "    %x\n", bs)
}

func (d *Dumper) Error(err error) {
	errorColor.Fprintf(d.w, "!! %v\n", err)
}
