package services

import (
	"sort"

	"github.com/ekaya-inc/ontoschema/pkg/models"
)

// OrderStages returns the descriptors in execution order. Every stage comes
// after the stages that satisfy its dependencies. Among stages that are ready
// together, shallower stages run first and ids break ties. A dependency
// cycle never fails: when nothing is ready, the remaining stage with the
// smallest (depth, id) is forced. Dependencies nothing satisfies are ignored.
func OrderStages(descs []models.StageDescriptor) []models.StageDescriptor {
	byID := make(map[models.StageID]models.StageDescriptor, len(descs))
	for _, d := range descs {
		byID[d.ID] = d
	}

	preds := stagePredecessors(byID)
	depths := make(map[models.StageID]int, len(byID))
	for id := range byID {
		depths[id] = stageDepth(id, preds, map[models.StageID]bool{})
	}
	less := func(a, b models.StageID) bool {
		if depths[a] != depths[b] {
			return depths[a] < depths[b]
		}
		return a < b
	}

	remaining := make(map[models.StageID]map[models.StageID]bool, len(byID))
	for id, ps := range preds {
		set := make(map[models.StageID]bool, len(ps))
		for _, p := range ps {
			set[p] = true
		}
		remaining[id] = set
	}

	out := make([]models.StageDescriptor, 0, len(byID))
	for len(remaining) > 0 {
		var next models.StageID
		found := false
		for id, ps := range remaining {
			if len(ps) == 0 && (!found || less(id, next)) {
				next, found = id, true
			}
		}
		if !found {
			// Cycle: force the shallowest remaining stage.
			for id := range remaining {
				if !found || less(id, next) {
					next, found = id, true
				}
			}
		}

		out = append(out, byID[next])
		delete(remaining, next)
		for _, ps := range remaining {
			delete(ps, next)
		}
	}
	return out
}

// stagePredecessors resolves every declared dependency to the stages that
// satisfy it, excluding the stage itself.
func stagePredecessors(byID map[models.StageID]models.StageDescriptor) map[models.StageID][]models.StageID {
	ids := make([]models.StageID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	preds := make(map[models.StageID][]models.StageID, len(byID))
	for _, id := range ids {
		seen := make(map[models.StageID]bool)
		preds[id] = nil
		for _, dep := range byID[id].Dependencies {
			for _, other := range ids {
				if other == id || seen[other] || !byID[other].Satisfies(dep) {
					continue
				}
				seen[other] = true
				preds[id] = append(preds[id], other)
			}
		}
	}
	return preds
}

// stageDepth is the longest dependency chain below id. An edge back into the
// current path counts as depth 0.
func stageDepth(id models.StageID, preds map[models.StageID][]models.StageID, visiting map[models.StageID]bool) int {
	if visiting[id] {
		return 0
	}
	visiting[id] = true
	defer delete(visiting, id)

	depth := 0
	for _, p := range preds[id] {
		depth = max(depth, 1+stageDepth(p, preds, visiting))
	}
	return depth
}
