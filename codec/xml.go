package codec

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Annotator supplies rewritten attribute values and comments while rendering.
type Annotator interface {
	DisplayValue(n *Node) (string, bool)
	Comments(n *Node) []string
}

const xmlHeader = "<?xml version=\"1.0\" ?>\n"

// WriteXML renders the tree as indented XML, comments of a node follow its children.
// a may be nil.
func WriteXML(w io.Writer, root *Node, a Annotator) error {
	if _, err := io.WriteString(w, xmlHeader); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := writeNode(enc, root, a); err != nil {
		return err
	}
	return enc.Flush()
}

func writeNode(enc *xml.Encoder, n *Node, a Annotator) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Tag}}
	for _, at := range n.Attrs {
		v := at.Value
		if a != nil && at.Name == "Value" {
			if dv, ok := a.DisplayValue(n); ok {
				v = dv
			}
		}
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: at.Name}, Value: v})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := writeNode(enc, c, a); err != nil {
			return err
		}
	}
	if a != nil {
		for _, c := range a.Comments(n) {
			// "--" is not allowed inside a comment
			for strings.Contains(c, "--") {
				c = strings.ReplaceAll(c, "--", "- -")
			}
			if err := enc.EncodeToken(xml.Comment(" " + c + " ")); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(start.End())
}

// XML renders the tree without annotations.
func (n *Node) XML() (string, error) {
	var b bytes.Buffer
	if err := WriteXML(&b, n, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}
