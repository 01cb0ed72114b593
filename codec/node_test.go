package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Node {
	return NewNode("Root").Add(
		NewNode("A").Add(NewNode("B", Attr{Name: "Value", Value: "1"})),
		NewNode("C").Add(
			NewNode("A").Add(
				NewNode("B", Attr{Name: "Value", Value: "2"}).Add(NewNode("D")),
			),
			NewNode("E"),
			NewNode("F"),
		),
	)
}

func TestFind(t *testing.T) {
	r := sampleTree()
	assert.Equal(t, "1", r.Find("A", "B").Value())
	require.NotNil(t, r.Find("A", "B", "D"))
	assert.Equal(t, "D", r.Find("A", "B", "D").Tag)
	assert.Nil(t, r.Find("Root"))
	assert.Nil(t, r.Find("B", "X"))
	assert.Nil(t, r.Find())
}

func TestFollowingSiblings(t *testing.T) {
	r := sampleTree()
	a := r.Children[1].Child("A")
	s := a.FollowingSiblings()
	require.Len(t, s, 2)
	assert.Equal(t, "E", s[0].Tag)
	assert.Nil(t, r.FollowingSiblings())
}

func TestWalkOrder(t *testing.T) {
	var tags []string
	sampleTree().Walk(func(n *Node) bool {
		tags = append(tags, n.Tag)
		return true
	})
	assert.Equal(t, "Root A B C A B D E F", strings.Join(tags, " "))
}

func TestAddSkipsNil(t *testing.T) {
	n := NewNode("X").Add(nil, NewNode("Y"))
	require.Len(t, n.Children, 1)
	assert.Equal(t, n, n.Children[0].Parent)
	assert.Len(t, NewNode("Z").ChildrenByTag("Y"), 0)
	assert.Len(t, sampleTree().Children[1].ChildrenByTag("E"), 1)
}

type testAnnotator struct{}

func (testAnnotator) DisplayValue(n *Node) (string, bool) {
	if n.Tag == "B" {
		return "display", true
	}
	return "", false
}

func (testAnnotator) Comments(n *Node) []string {
	if n.Tag == "E" {
		return []string{"note --> here"}
	}
	return nil
}

func TestXML(t *testing.T) {
	s, err := sampleTree().XML()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "<?xml version=\"1.0\" ?>\n<Root>"))
	assert.Contains(t, s, `<B Value="1"></B>`)

	var b strings.Builder
	require.NoError(t, WriteXML(&b, sampleTree(), testAnnotator{}))
	assert.Contains(t, b.String(), `<B Value="display"></B>`)
	assert.Contains(t, b.String(), "<!-- note - -> here -->")
}
