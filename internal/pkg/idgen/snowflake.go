package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator issues Snowflake IDs for one node
type Generator struct {
	node *snowflake.Node
}

// New creates a generator for nodeID (0-1023)
func New(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("invalid snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// NextID generates a new Snowflake ID as a string
func (g *Generator) NextID() string {
	return g.node.Generate().String()
}
