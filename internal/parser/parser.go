// Package parser implements the Workflow Parser (spec §4.2): it lowers
// workflow JSON sugar (bare node-type strings, implicit sequences, edge
// branches, loop markers) into the ast.Workflow AST, validating node types
// and edge names against a registry.Registry as it goes.
package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// loopMarker is the trailing three-dot suffix marking a node re-entrant
// (spec §3, "Loop marker").
const loopMarker = "..."

// edgeQuerySuffix marks a config key as a branch rather than configuration
// (spec §3, "Edge-query keys").
const edgeQuerySuffix = "?"

// document mirrors the top-level workflow JSON shape (spec §3, "Workflow
// definition").
type document struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	InitialState json.RawMessage `json:"initialState"`
	Context      json.RawMessage `json:"context"`
	Workflow     json.RawMessage `json:"workflow"`
}

// Parse decodes raw workflow JSON and lowers it into a validated ast.Workflow
// against reg. Returns *ast.ParseError (or a wrapped variant) on any
// structural violation, per spec §4.2's error conditions.
func Parse(raw []byte, reg *registry.Registry) (*ast.Workflow, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, ast.NewParseError("/", fmt.Sprintf("malformed JSON: %v", err))
	}

	if len(doc.Workflow) == 0 {
		return nil, ast.NewParseError("/workflow", "missing required field: workflow")
	}

	var rawSteps []json.RawMessage
	if err := json.Unmarshal(doc.Workflow, &rawSteps); err != nil {
		return nil, ast.NewParseError("/workflow", fmt.Sprintf("workflow must be an ordered array of steps: %v", err))
	}
	if len(rawSteps) == 0 {
		return nil, ast.NewParseError("/workflow", "workflow must contain at least one step")
	}

	p := &lowerer{reg: reg}
	steps := make(ast.Sequence, 0, len(rawSteps))
	for i, raw := range rawSteps {
		path := fmt.Sprintf("/workflow/%d", i)
		seq, err := p.lowerStep(raw, path, strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		steps = append(steps, seq...)
	}

	wf := &ast.Workflow{
		ID:      doc.ID,
		Name:    doc.Name,
		Version: doc.Version,
		Steps:   steps,
	}

	if len(doc.InitialState) > 0 {
		var state map[string]interface{}
		if err := json.Unmarshal(doc.InitialState, &state); err != nil {
			return nil, ast.NewParseError("/initialState", fmt.Sprintf("must be an object: %v", err))
		}
		wf.InitialState = state
	}
	if len(doc.Context) > 0 {
		var ctx map[string]interface{}
		if err := json.Unmarshal(doc.Context, &ctx); err != nil {
			return nil, ast.NewParseError("/context", fmt.Sprintf("must be an object: %v", err))
		}
		wf.Context = ctx
	}

	return wf, nil
}

// lowerer holds parse-time dependencies; it has no mutable state beyond the
// registry reference, so one instance lowers an entire document.
type lowerer struct {
	reg *registry.Registry
}

// lowerStep lowers one step expression (spec §4.2 algorithm, step 2) into a
// Sequence: length 1 for an ordinary step, length N for an implicit sequence.
func (p *lowerer) lowerStep(raw json.RawMessage, path string, idPrefix string) (ast.Sequence, error) {
	trimmed := strings.TrimSpace(string(raw))

	// Case 1: bare node-type string.
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var nodeType string
		if err := json.Unmarshal(raw, &nodeType); err != nil {
			return nil, ast.NewParseError(path, fmt.Sprintf("invalid step string: %v", err))
		}
		node, err := p.newNode(nodeType, nil, path, idPrefix)
		if err != nil {
			return nil, err
		}
		return ast.Sequence{node}, nil
	}

	// Otherwise it must be a JSON object.
	om := ast.NewOrderedMap()
	if err := json.Unmarshal(raw, om); err != nil {
		return nil, ast.NewParseError(path, fmt.Sprintf("step must be a string or object: %v", err))
	}

	if om.Len() == 0 {
		return nil, ast.NewParseError(path, "step object must not be empty")
	}

	if om.Len() > 1 {
		// Case 2: implicit sequence — every key is itself a one-key step.
		seq := make(ast.Sequence, 0, om.Len())
		for i, key := range om.Keys {
			val, _ := om.Get(key)
			singleKeyObj, err := reWrapSingleKey(key, val)
			if err != nil {
				return nil, ast.NewParseError(path, err.Error())
			}
			subPath := fmt.Sprintf("%s/%s", path, key)
			subID := fmt.Sprintf("%s.%d", idPrefix, i)
			subSeq, err := p.lowerStep(singleKeyObj, subPath, subID)
			if err != nil {
				return nil, err
			}
			seq = append(seq, subSeq...)
		}
		return seq, nil
	}

	// Case 3: exactly one key -> explicit node with config/branches.
	key := om.Keys[0]
	val, _ := om.Get(key)

	nodeType, isLoop := strings.CutSuffix(key, loopMarker)

	var valOM *ast.OrderedMap
	trimmedVal := strings.TrimSpace(string(val))
	if trimmedVal == "null" || len(trimmedVal) == 0 {
		valOM = ast.NewOrderedMap()
	} else {
		valOM = ast.NewOrderedMap()
		if err := json.Unmarshal(val, valOM); err != nil {
			return nil, ast.NewParseError(path+"/"+key, fmt.Sprintf("node config must be an object: %v", err))
		}
	}

	config := make(map[string]interface{})
	branchRaw := make(map[string]json.RawMessage)
	for _, k := range valOM.Keys {
		v, _ := valOM.Get(k)
		if strings.HasSuffix(k, edgeQuerySuffix) {
			edgeName := strings.TrimSuffix(k, edgeQuerySuffix)
			branchRaw[edgeName] = v
			continue
		}
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return nil, ast.NewParseError(path+"/"+key+"/"+k, fmt.Sprintf("invalid config value: %v", err))
		}
		config[k] = decoded
	}

	node, err := p.newNode(nodeType, config, path+"/"+key, idPrefix)
	if err != nil {
		return nil, err
	}
	node.IsLoop = isLoop

	if len(branchRaw) > 0 {
		node.Branches = make(map[string]ast.Sequence, len(branchRaw))
		for edgeName, raw := range branchRaw {
			desc, ok := p.reg.Lookup(node.NodeType)
			if ok && !desc.DeclaresEdge(edgeName) {
				return nil, ast.ErrUnknownEdgeAt(path+"/"+key, node.NodeType, edgeName)
			}
			subPath := fmt.Sprintf("%s/%s?", path+"/"+key, edgeName)
			subID := fmt.Sprintf("%s.%s", idPrefix, edgeName)
			subSeq, err := p.lowerStep(raw, subPath, subID)
			if err != nil {
				return nil, err
			}
			node.Branches[edgeName] = subSeq
		}
	}

	if isLoop {
		if err := p.validateLoopBranches(node, path+"/"+key); err != nil {
			return nil, err
		}
	}

	return ast.Sequence{node}, nil
}

// newNode validates nodeType against the registry and constructs the AST
// node (spec §4.2 step 3, invariant 1).
func (p *lowerer) newNode(nodeType string, config map[string]interface{}, path, idPrefix string) (*ast.Node, error) {
	nt := ast.NodeType(nodeType)
	if _, ok := p.reg.Lookup(nt); !ok {
		return nil, ast.ErrUnknownNodeTypeAt(path, nt)
	}
	return &ast.Node{
		InstanceID: idPrefix,
		NodeType:   nt,
		Config:     config,
	}, nil
}

// validateLoopBranches enforces spec §3 invariant 3: a loop-marked node must
// have at least one non-terminal (branched) edge and at least one terminal
// (branch-less) edge among the edges its type declares, else the workflow
// could never terminate.
func (p *lowerer) validateLoopBranches(node *ast.Node, path string) error {
	if len(node.Branches) == 0 {
		return ast.NewParseError(path, "loop-marked node must branch on at least one re-entry edge")
	}

	desc, ok := p.reg.Lookup(node.NodeType)
	if !ok {
		return nil // unknown-type case already rejected by newNode
	}

	hasTerminal := false
	for _, edge := range desc.Edges {
		if _, branched := node.Branches[edge]; !branched {
			hasTerminal = true
			break
		}
	}
	if !hasTerminal {
		return ast.NewParseError(path, "loop-marked node has no terminal edge: every declared edge has a branch, so the workflow cannot exit the loop")
	}
	return nil
}

// reWrapSingleKey re-serializes a (key, rawValue) pair from an implicit
// sequence as a standalone single-key JSON object so it can be lowered
// through the same single-step path.
func reWrapSingleKey(key string, val json.RawMessage) (json.RawMessage, error) {
	om := ast.NewOrderedMap()
	om.Keys = []string{key}
	om.Values = map[string]json.RawMessage{key: val}
	return json.Marshal(om)
}
