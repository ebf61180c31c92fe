// Package archive reads Unix ar(1) archives, the format kld's -l
// search uses to pull in lib<name>.rlib archives of relocatable
// objects (spec.md §4.1, §6). It is grounded on
// original_source/src/reader.rs's read_archive, which delegates to the
// Rust `ar` crate; no Go library for the format appears anywhere in
// the example pack, so this reads the format directly against the
// standard library alone.
package archive

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

const (
	globalMagic = "!<arch>\n"
	headerSize  = 60
	endMagic    = "`\n"
)

// Member is one named entry extracted from an archive.
type Member struct {
	Name string
	Data []byte
}

// Read parses the ar archive in data and returns its .o members in
// the order they appear. Non-object members (the GNU symbol table "/"
// and long-name table "//") are consumed to resolve names but not
// returned.
func Read(data []byte) ([]Member, error) {
	if !bytes.HasPrefix(data, []byte(globalMagic)) {
		return nil, fmt.Errorf("archive: missing %q magic", globalMagic)
	}
	data = data[len(globalMagic):]

	var longNames string
	var members []Member

	for len(data) > 0 {
		if len(data) < headerSize {
			return nil, fmt.Errorf("archive: truncated member header")
		}
		hdr := data[:headerSize]
		data = data[headerSize:]

		if string(hdr[58:60]) != endMagic {
			return nil, fmt.Errorf("archive: bad member end magic %q", hdr[58:60])
		}

		name := strings.TrimRight(string(hdr[0:16]), " ")
		sizeField := strings.TrimSpace(string(hdr[48:58]))
		size, err := strconv.ParseInt(sizeField, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("archive: bad member size %q: %w", sizeField, err)
		}
		if int64(len(data)) < size {
			return nil, fmt.Errorf("archive: member %q truncated", name)
		}

		body := data[:size]
		data = data[size:]
		if size%2 != 0 && len(data) > 0 {
			data = data[1:] // padding byte to keep members 2-byte aligned
		}

		switch {
		case name == "/":
			continue // GNU symbol table, not needed: kld resolves symbols itself
		case name == "//":
			longNames = string(body)
			continue
		case strings.HasPrefix(name, "/"):
			name = gnuLongName(longNames, name)
		case strings.HasPrefix(name, "#1/"):
			name, body = bsdLongName(name, body)
		default:
			name = strings.TrimSuffix(name, "/")
		}

		if !strings.HasSuffix(name, ".o") {
			continue
		}
		members = append(members, Member{Name: name, Data: body})
	}

	return members, nil
}

// gnuLongName resolves a GNU "/123" style reference into the "//"
// string table captured earlier in the same archive.
func gnuLongName(table, ref string) string {
	off, err := strconv.Atoi(strings.TrimPrefix(ref, "/"))
	if err != nil || off < 0 || off > len(table) {
		return ref
	}
	rest := table[off:]
	if i := strings.IndexAny(rest, "/\n"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// bsdLongName resolves a BSD "#1/N" style reference: the name itself
// is stored as the first N bytes of the member body.
func bsdLongName(name string, body []byte) (string, []byte) {
	n, err := strconv.Atoi(strings.TrimPrefix(name, "#1/"))
	if err != nil || n < 0 || n > len(body) {
		return name, body
	}
	return strings.TrimRight(string(body[:n]), "\x00"), body[n:]
}
