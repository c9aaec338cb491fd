// Package menu models static button menus as a directed graph of named
// nodes. Nodes link to submenus through codec tokens; "back" edges return to
// the parent node without touching any conversation state.
package menu

import (
	"fmt"

	"github.com/m3rciful/ledgerbot/core/telegram/callbacks"
	"github.com/m3rciful/ledgerbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// NavTemplate routes taps on submenu and back buttons.
var NavTemplate = callbacks.MustParse("menu|${node}")

// Node is a named, orderable grid of buttons within a Graph.
type Node struct {
	name   string
	title  string
	rows   [][]keyboard.Button
	parent *Node
}

// Graph holds the registered nodes rooted at a top-level menu.
type Graph struct {
	nodes map[string]*Node
	root  *Node
}

// NewGraph creates a graph with a root node.
func NewGraph(rootName, rootTitle string) *Graph {
	root := &Node{name: rootName, title: rootTitle}
	return &Graph{
		nodes: map[string]*Node{rootName: root},
		root:  root,
	}
}

// Root returns the top-level node.
func (g *Graph) Root() *Node { return g.root }

// Lookup resolves a node by name.
func (g *Graph) Lookup(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// AddNode registers a child node under parent. Node names must be unique
// within the graph.
func (g *Graph) AddNode(parent *Node, name, title string) (*Node, error) {
	if parent == nil {
		parent = g.root
	}
	if _, exists := g.nodes[name]; exists {
		return nil, fmt.Errorf("menu: node already registered: %s", name)
	}
	n := &Node{name: name, title: title, parent: parent}
	g.nodes[name] = n
	return n, nil
}

// Name returns the node's registration name.
func (n *Node) Name() string { return n.name }

// Title returns the message text shown with the node's keyboard.
func (n *Node) Title() string { return n.title }

// AddRow appends a row of buttons to the node grid.
func (n *Node) AddRow(buttons ...keyboard.Button) *Node {
	if len(buttons) > 0 {
		n.rows = append(n.rows, buttons)
	}
	return n
}

// AddSubmenu appends a row holding a single button that opens the child node.
func (n *Node) AddSubmenu(label string, child *Node) error {
	token, err := NavTemplate.Instantiate(map[string]string{"node": child.name})
	if err != nil {
		return err
	}
	n.AddRow(keyboard.Button{Text: label, Token: token})
	return nil
}

// Markup renders the node grid, appending a back row for non-root nodes.
func (n *Node) Markup() *tele.ReplyMarkup {
	rows := make([][]keyboard.Button, 0, len(n.rows)+1)
	rows = append(rows, n.rows...)
	if n.parent != nil {
		if token, err := NavTemplate.Instantiate(map[string]string{"node": n.parent.name}); err == nil {
			rows = append(rows, []keyboard.Button{{Text: "⬅️ Back", Token: token}})
		}
	}
	return keyboard.Markup(rows...)
}

// Register wires graph navigation into the callback registry. show renders
// a node to the chat, typically via EditOrSend of Title and Markup.
func (g *Graph) Register(reg *callbacks.Registry, show func(c tele.Context, n *Node) error) error {
	return reg.Register(NavTemplate, func(c tele.Context, params map[string]string) error {
		node, ok := g.Lookup(params["node"])
		if !ok {
			return fmt.Errorf("menu: unknown node %q", params["node"])
		}
		return show(c, node)
	})
}
