package decode

import (
	"fmt"
	"io"

	"gopkg.in/ini.v1"

	"github.com/hyperjump/fileparse/internal/record"
)

var iniLoadOptions = ini.LoadOptions{
	InsensitiveKeys:            true,
	IgnoreInlineComment:        true,
	AllowPythonMultilineValues: true,
	PreserveSurroundedQuote:    true,
}

// iniDecoder yields one record per named section. Keys from the DEFAULT
// section are inherited by every section.
type iniDecoder struct {
	r        io.Reader
	defaults *ini.Section
	sections []*ini.Section
	loaded   bool
	pos      int
}

func newINI(r io.Reader, _ Options) (Decoder, error) {
	return &iniDecoder{r: r}, nil
}

func (d *iniDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		if err := d.load(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.sections) {
		return nil, io.EOF
	}
	sec := d.sections[d.pos]
	d.pos++
	return d.sectionRecord(sec), nil
}

func (d *iniDecoder) load() error {
	// ini.LoadSources closes an io.ReadCloser it is given, so hand it bytes.
	data, err := io.ReadAll(d.r)
	if err != nil {
		return fmt.Errorf("read ini: %w", err)
	}
	f, err := ini.LoadSources(iniLoadOptions, data)
	if err != nil {
		return fmt.Errorf("parse ini: %w", err)
	}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			d.defaults = sec
			continue
		}
		d.sections = append(d.sections, sec)
	}
	return nil
}

func (d *iniDecoder) sectionRecord(sec *ini.Section) *record.Record {
	rec := record.Of(record.FieldSection, sec.Name())
	if d.defaults != nil {
		for _, k := range d.defaults.Keys() {
			rec.Set(k.Name(), k.String())
		}
	}
	// Set keeps the position of an overridden DEFAULT key.
	for _, k := range sec.Keys() {
		rec.Set(k.Name(), k.String())
	}
	return rec
}
