package enrich

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/fields"
)

// Tree is a decoded tree plus human readable annotations. The decoded nodes are
// never modified, rewritten values and comments live in side tables.
type Tree struct {
	Root    *codec.Node
	notes   map[*codec.Node][]string
	display map[*codec.Node]string
}

// Enrich walks root depth-first, pre-order, and annotates every node with a known role.
func Enrich(root *codec.Node) *Tree {
	t := &Tree{
		Root:    root,
		notes:   make(map[*codec.Node][]string),
		display: make(map[*codec.Node]string),
	}
	if root == nil {
		return t
	}
	root.Walk(func(n *codec.Node) bool {
		t.annotate(n)
		return true
	})
	return t
}

func (t *Tree) note(n *codec.Node, format string, v ...any) {
	t.notes[n] = append(t.notes[n], fmt.Sprintf(format, v...))
}

func (t *Tree) annotate(n *codec.Node) {
	value := n.Value()
	if value == "" {
		return
	}
	switch n.Tag {
	case "TargetAddress":
		if v, err := strconv.ParseUint(value, 16, 32); err == nil {
			t.note(n, "TargetAddress %d", v)
		}
	case "SourceAddress":
		v, err := strconv.ParseUint(value, 16, 32)
		if err != nil {
			return
		}
		var logical, physical uint64
		if v > 0x3fff {
			logical, physical = v>>14, v&0x3fff
		} else {
			logical, physical = v>>7, v&0x7f
		}
		t.note(n, "Logical address - %d, Physical address - %d", logical, physical)
	case "ClassId":
		v, err := strconv.ParseUint(value, 16, 16)
		if err != nil {
			return
		}
		t.display[n] = strconv.FormatUint(v, 10)
		if name, ok := base.ClassName(int(v)); ok {
			t.note(n, "%s", name)
		}
	case "AttributeId":
		if v, err := strconv.ParseUint(value, 16, 8); err == nil {
			t.display[n] = strconv.FormatUint(v, 10)
		}
	case "InstanceId":
		t.display[n] = fields.HexToObis(value)
	case "LongInvokeIdAndPriority":
		i, ok := fields.DecodeInvokeID(value)
		if !ok {
			return
		}
		t.note(n, "%s", i.Priority)
		t.note(n, "%s", i.Service)
		if i.HasInvokeID {
			t.note(n, "Invoke ID: %d", i.InvokeID)
		}
	case "DateTime":
		if s, ok := fields.TryDlmsDateTime(value); ok {
			t.note(n, "%s", s)
		}
	case "OctetString":
		if s, ok := fields.TryASCII(value); ok && fields.IsPrintable(s) {
			t.note(n, "%s", s)
			return
		}
		if len(value) == base.ObisHexLength {
			if obis := fields.HexToObis(value); obis != value {
				if name, ok := base.ObisName(value); ok {
					t.note(n, "OBIS: %s (%s)", obis, name)
				} else {
					t.note(n, "OBIS: %s", obis)
				}
				return
			}
		}
		if s, ok := fields.TryDlmsDateTime(value); ok {
			t.note(n, "DateTime: %s", s)
		}
	}
}

// Comments returns annotations attached to n.
func (t *Tree) Comments(n *codec.Node) []string {
	return t.notes[n]
}

// Comment returns the first annotation of n or empty string.
func (t *Tree) Comment(n *codec.Node) string {
	if c := t.notes[n]; len(c) > 0 {
		return c[0]
	}
	return ""
}

// DisplayValue returns the rewritten Value attribute of n, if any.
func (t *Tree) DisplayValue(n *codec.Node) (string, bool) {
	v, ok := t.display[n]
	return v, ok
}

// Value returns the rewritten value of n or its original Value attribute.
func (t *Tree) Value(n *codec.Node) string {
	if v, ok := t.display[n]; ok {
		return v
	}
	return n.Value()
}

// InvokeID decodes the first LongInvokeIdAndPriority of the tree.
func (t *Tree) InvokeID() (fields.InvokeInfo, bool) {
	if t.Root == nil {
		return fields.InvokeInfo{}, false
	}
	var n *codec.Node
	if t.Root.Tag == "LongInvokeIdAndPriority" {
		n = t.Root
	} else {
		n = t.Root.Find("LongInvokeIdAndPriority")
	}
	if n == nil {
		return fields.InvokeInfo{}, false
	}
	return fields.DecodeInvokeID(n.Value())
}

// XML renders the annotated tree, annotations as comments.
func (t *Tree) XML() (string, error) {
	if t.Root == nil {
		return "", base.ErrXmlDecodeFailure
	}
	var b bytes.Buffer
	if err := codec.WriteXML(&b, t.Root, t); err != nil {
		return "", err
	}
	return b.String(), nil
}
