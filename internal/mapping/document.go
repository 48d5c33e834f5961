package mapping

import (
	"strings"

	"github.com/capbase/resolverguard/internal/types"
)

const (
	startMarker = "## [Start] "
	endMarker   = "## [End] "
)

// Document is a mapping template split into leading guard blocks and the body.
type Document struct {
	Blocks []types.GuardBlock
	Body   string
}

// Parse splits src into the leading guard blocks whose names are listed in
// known and the remaining body. Blocks with other names, including the
// sections Amplify itself generates, are left in the body.
func Parse(src string, known ...string) Document {
	names := make(map[string]struct{}, len(known))
	for _, n := range known {
		names[n] = struct{}{}
	}

	doc := Document{}
	rest := src
	for {
		block, remaining, ok := cutBlock(rest, names)
		if !ok {
			break
		}
		doc.Blocks = append(doc.Blocks, block)
		rest = remaining
	}
	doc.Body = rest
	return doc
}

// cutBlock removes one known block from the head of src. The block must be
// followed by a newline, which Render re-inserts.
func cutBlock(src string, names map[string]struct{}) (types.GuardBlock, string, bool) {
	if !strings.HasPrefix(src, startMarker) {
		return types.GuardBlock{}, src, false
	}
	firstLine, _, found := strings.Cut(src, "\n")
	if !found {
		return types.GuardBlock{}, src, false
	}
	name := strings.TrimPrefix(firstLine, startMarker)
	if _, ok := names[name]; !ok {
		return types.GuardBlock{}, src, false
	}

	end := "\n" + endMarker + name + "\n"
	idx := strings.Index(src, end)
	if idx < 0 {
		return types.GuardBlock{}, src, false
	}
	textLen := idx + len(end) - 1
	return types.GuardBlock{Name: name, Text: src[:textLen]}, src[textLen+1:], true
}

// Render composes the document back into mapping template source.
func (d Document) Render() string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		sb.WriteString(b.Text)
		sb.WriteByte('\n')
	}
	sb.WriteString(d.Body)
	return sb.String()
}

// Has reports whether a block with the given name is present.
func (d Document) Has(name string) bool {
	for _, b := range d.Blocks {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Prepend places b in front of all existing blocks, even if one with the
// same name is already present.
func (d *Document) Prepend(b types.GuardBlock) {
	d.Blocks = append([]types.GuardBlock{b}, d.Blocks...)
}

// Ensure prepends b unless a block with the same name is present. A present
// block with different text is replaced where it stands. It reports whether
// the document changed.
func (d *Document) Ensure(b types.GuardBlock) bool {
	for i := range d.Blocks {
		if d.Blocks[i].Name != b.Name {
			continue
		}
		if d.Blocks[i].Text == b.Text {
			return false
		}
		d.Blocks[i] = b
		return true
	}
	d.Prepend(b)
	return true
}

// BlockNames returns the names of the leading blocks in order.
func (d Document) BlockNames() []string {
	names := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		names = append(names, b.Name)
	}
	return names
}

// Wrap builds block text from a name and its inner lines.
func Wrap(name string, lines ...string) types.GuardBlock {
	var sb strings.Builder
	sb.WriteString(startMarker)
	sb.WriteString(name)
	sb.WriteByte('\n')
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteString(endMarker)
	sb.WriteString(name)
	return types.GuardBlock{Name: name, Text: sb.String()}
}
