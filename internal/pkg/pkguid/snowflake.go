package pkguid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// epochMillis is Thu Jan 01 2026 00:00:00.000 UTC.
const epochMillis = 1767225600000

//nolint:gochecknoglobals // snowflake.Epoch is package state in the library
var setEpoch sync.Once

// Snowflake generates time-ordered numeric IDs.
type Snowflake struct {
	node *snowflake.Node
}

func randomNodeID() (int64, error) {
	var nodeID int64
	if err := binary.Read(rand.Reader, binary.BigEndian, &nodeID); err != nil {
		return 0, err
	}

	return nodeID & (int64(1)<<snowflake.NodeBits - 1), nil
}

// NewSnowflake constructs a generator with a random node ID.
func NewSnowflake() (*Snowflake, error) {
	nodeID, err := randomNodeID()
	if err != nil {
		return nil, err
	}

	return NewSnowflakeNode(nodeID)
}

// NewSnowflakeNode constructs a generator for a fixed node ID in 0..1023.
// A negative ID picks one at random.
func NewSnowflakeNode(nodeID int64) (*Snowflake, error) {
	if nodeID < 0 {
		return NewSnowflake()
	}

	setEpoch.Do(func() {
		snowflake.Epoch = epochMillis
	})

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}

	return &Snowflake{node: node}, nil
}

func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
