package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/costing/pkg/domain/entities"
)

// BOMValidator provides validation for assembly graph integrity
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles             bool
	CyclePaths            [][]entities.ItemID
	DuplicateEdges        []entities.AssemblyEdge
	NonAssemblableParents []entities.ItemID
	UnknownItems          []entities.ItemID
	Errors                []string
}

// IsValid reports whether validation found no errors
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ValidateEdges performs validation on a set of active assembly edges. Items,
// when given, are used to check parent capabilities and dangling references.
func (v *BOMValidator) ValidateEdges(edges []entities.AssemblyEdge, items []*entities.Item) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:            make([][]entities.ItemID, 0),
		DuplicateEdges:        make([]entities.AssemblyEdge, 0),
		NonAssemblableParents: make([]entities.ItemID, 0),
		UnknownItems:          make([]entities.ItemID, 0),
		Errors:                make([]string, 0),
	}

	active := make([]entities.AssemblyEdge, 0, len(edges))
	for _, e := range edges {
		if e.Active {
			active = append(active, e)
		}
	}

	adjacencyMap := v.buildAdjacencyMap(active)

	cycles := v.detectCycles(adjacencyMap)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles

	result.DuplicateEdges = v.detectDuplicateEdges(active)

	if items != nil {
		v.checkItems(active, items, result)
	}

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	if len(result.DuplicateEdges) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate assembly edges", len(result.DuplicateEdges)))
	}
	for _, id := range result.NonAssemblableParents {
		result.Errors = append(result.Errors, fmt.Sprintf("Item %s has children but is not assemblable", id))
	}
	for _, id := range result.UnknownItems {
		result.Errors = append(result.Errors, fmt.Sprintf("Edge references unknown item %s", id))
	}

	return result
}

func (v *BOMValidator) checkItems(edges []entities.AssemblyEdge, items []*entities.Item, result *ValidationResult) {
	byID := make(map[entities.ItemID]*entities.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	flagged := make(map[entities.ItemID]bool)
	unknown := make(map[entities.ItemID]bool)
	for _, e := range edges {
		parent, ok := byID[e.ParentID]
		if !ok {
			unknown[e.ParentID] = true
		} else if !parent.CanHaveChildren() && !flagged[e.ParentID] {
			flagged[e.ParentID] = true
			result.NonAssemblableParents = append(result.NonAssemblableParents, e.ParentID)
		}
		if _, ok := byID[e.ChildID]; !ok {
			unknown[e.ChildID] = true
		}
	}

	for id := range unknown {
		result.UnknownItems = append(result.UnknownItems, id)
	}
	sortItemIDs(result.UnknownItems)
	sortItemIDs(result.NonAssemblableParents)
}

// buildAdjacencyMap creates a map of parent -> children relationships
func (v *BOMValidator) buildAdjacencyMap(edges []entities.AssemblyEdge) map[entities.ItemID][]entities.ItemID {
	adjacencyMap := make(map[entities.ItemID][]entities.ItemID)

	for _, edge := range edges {
		children := adjacencyMap[edge.ParentID]

		found := false
		for _, child := range children {
			if child == edge.ChildID {
				found = true
				break
			}
		}

		if !found {
			adjacencyMap[edge.ParentID] = append(children, edge.ChildID)
		}
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the assembly graph
func (v *BOMValidator) detectCycles(adjacencyMap map[entities.ItemID][]entities.ItemID) [][]entities.ItemID {
	visited := make(map[entities.ItemID]bool)
	recursionStack := make(map[entities.ItemID]bool)
	cycles := make([][]entities.ItemID, 0)

	parents := make([]entities.ItemID, 0, len(adjacencyMap))
	for parent := range adjacencyMap {
		parents = append(parents, parent)
	}
	sortItemIDs(parents)

	for _, parent := range parents {
		if !visited[parent] {
			v.dfsDetectCycle(parent, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *BOMValidator) dfsDetectCycle(
	current entities.ItemID,
	adjacencyMap map[entities.ItemID][]entities.ItemID,
	visited map[entities.ItemID]bool,
	recursionStack map[entities.ItemID]bool,
	path []entities.ItemID,
	cycles *[][]entities.ItemID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
		} else if recursionStack[child] {
			for i, part := range path {
				if part == child {
					cycle := make([]entities.ItemID, 0, len(path)-i+1)
					cycle = append(cycle, path[i:]...)
					cycle = append(cycle, child)
					*cycles = append(*cycles, cycle)
					break
				}
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateEdges finds active edges sharing parent, child and effective window
func (v *BOMValidator) detectDuplicateEdges(edges []entities.AssemblyEdge) []entities.AssemblyEdge {
	seen := make(map[string]entities.AssemblyEdge)
	duplicates := make([]entities.AssemblyEdge, 0)

	for _, edge := range edges {
		key := fmt.Sprintf("%s|%s|%s|%s", edge.ParentID, edge.ChildID, windowKey(edge.Effectivity.From), windowKey(edge.Effectivity.To))

		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, edge, existing)
		} else {
			seen[key] = edge
		}
	}

	return duplicates
}

func sortItemIDs(ids []entities.ItemID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func windowKey(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.UTC().Format(time.RFC3339)
}
