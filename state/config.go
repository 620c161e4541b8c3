package state

// NodeCfg is one node's public entry in the central config.
type NodeCfg struct {
	Id   NodeId `yaml:"id"`
	Bind string `yaml:"bind,omitempty"`
}

type Edge struct {
	A NodeId `yaml:"a"`
	B NodeId `yaml:"b"`
}

// CentralCfg describes the whole network: which nodes exist and which pairs
// are joined by a physical link. It is shared by every node.
type CentralCfg struct {
	Nodes []NodeCfg `yaml:"nodes"`
	Edges []Edge    `yaml:"edges,omitempty"`
}

func (c *CentralCfg) TryGetNode(id NodeId) *NodeCfg {
	for i := range c.Nodes {
		if c.Nodes[i].Id == id {
			return &c.Nodes[i]
		}
	}
	return nil
}

// GetPeers returns the nodes joined to id by an edge.
func (c *CentralCfg) GetPeers(id NodeId) []NodeId {
	peers := make([]NodeId, 0)
	for _, e := range c.Edges {
		if e.A == id {
			peers = append(peers, e.B)
		} else if e.B == id {
			peers = append(peers, e.A)
		}
	}
	return peers
}

// LocalCfg is one node's private config.
type LocalCfg struct {
	Id      NodeId `yaml:"id"`
	Bind    string `yaml:"bind,omitempty"`
	LogPath string `yaml:"log_path,omitempty"`
}
