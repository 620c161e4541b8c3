package state

import (
	"fmt"
	"net/netip"
	"regexp"
	"slices"
)

var namePattern, _ = regexp.Compile("^[0-9a-z._-]+$")

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func BindValidator(s string) error {
	_, err := netip.ParseAddrPort(s)
	return err
}

func LocalConfigValidator(cfg *LocalCfg) error {
	err := NameValidator(string(cfg.Id))
	if err != nil {
		return err
	}
	if cfg.Bind != "" {
		return BindValidator(cfg.Bind)
	}
	return nil
}

func CentralConfigValidator(cfg *CentralCfg) error {
	for _, node := range cfg.Nodes {
		err := NameValidator(string(node.Id))
		if err != nil {
			return err
		}
		if node.Bind != "" {
			if err := BindValidator(node.Bind); err != nil {
				return fmt.Errorf("node %s: %w", node.Id, err)
			}
		}
	}
	seen := make([]Edge, 0)
	for _, edge := range cfg.Edges {
		if edge.A == edge.B {
			return fmt.Errorf("self edge found: %s", edge.A)
		}
		if slices.Contains(seen, edge) {
			return fmt.Errorf("duplicate edge found: %s, %s", edge.A, edge.B)
		}
		if !slices.ContainsFunc(cfg.Nodes, func(n NodeCfg) bool {
			return n.Id == edge.A
		}) {
			return fmt.Errorf("node %s not defined", edge.A)
		}
		if !slices.ContainsFunc(cfg.Nodes, func(n NodeCfg) bool {
			return n.Id == edge.B
		}) {
			return fmt.Errorf("node %s not defined", edge.B)
		}
		seen = append(seen, edge)
		seen = append(seen, Edge{edge.B, edge.A})
	}
	return nil
}
