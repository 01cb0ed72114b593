package codec

type Attr struct {
	Name  string
	Value string
}

// Node is one element of a decoded message tree. Trees are built once by a
// Decoder and treated as read-only afterwards.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Parent   *Node
}

func NewNode(tag string, attrs ...Attr) *Node {
	return &Node{Tag: tag, Attrs: attrs}
}

// Add appends children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c == nil {
			continue
		}
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Value returns the Value attribute, empty if there is none.
func (n *Node) Value() string {
	v, _ := n.Attr("Value")
	return v
}

// Child returns the first direct child with the tag.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func (n *Node) ChildrenByTag(tag string) []*Node {
	var r []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			r = append(r, c)
		}
	}
	return r
}

// Walk visits n and its descendants depth-first, pre-order, until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first descendant (n itself excluded) with tag path[0] that has
// a chain of direct children tagged path[1:], and returns the last node of the
// chain. Document order decides between multiple matches.
func (n *Node) Find(path ...string) *Node {
	if len(path) == 0 {
		return nil
	}
	var found *Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if d.Tag == path[0] {
				found = d.chain(path[1:])
			}
			return found == nil
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func (n *Node) chain(path []string) *Node {
	if len(path) == 0 {
		return n
	}
	for _, c := range n.Children {
		if c.Tag != path[0] {
			continue
		}
		if r := c.chain(path[1:]); r != nil {
			return r
		}
	}
	return nil
}

// FollowingSiblings returns children of n's parent positioned after n.
func (n *Node) FollowingSiblings() []*Node {
	if n.Parent == nil {
		return nil
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return n.Parent.Children[i+1:]
		}
	}
	return nil
}
