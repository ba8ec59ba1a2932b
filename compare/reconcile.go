package compare

import (
	"image"
	"math"
	"sort"
)

const (
	// reconcileMaxIter caps the fixed-point iteration so adversarial
	// inputs (floating-point boundary oscillation) still terminate.
	reconcileMaxIter = 25

	// nmsIoUThreshold is the loose final safety net against residual
	// duplicates after the merge loop has converged.
	nmsIoUThreshold = 0.9

	// Moved-pair suppression tolerances, in pixels. Deliberately
	// conservative: a pair is only dropped when geometry matches AND
	// the patch contents are effectively identical.
	movedMaxCenterShiftPx = 12.0
	movedSizeAbsTolPx     = 3.0
	movedSizeRelTol       = 0.1
	movedMinPatchSim      = 0.93

	// unchangedPairEpsPx rounds geometry when testing whether an
	// Added/Removed pair is the same rectangle seen twice.
	unchangedPairEpsPx = 1.5
)

// Reconcile converts noisy raw candidate boxes into a clean,
// deduplicated set: same-type boxes are containment-pruned and merged
// to a fixed point, swept by a final NMS pass, and re-checked against
// the minimum-area floor. Malformed boxes (non-finite or inverted
// coordinates) are dropped at intake with a warning rather than
// propagated.
func Reconcile(boxes []Box, p Params) []Box {
	valid := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		if !b.Valid() {
			log.Warnf("dropping malformed box %+v", b)
			continue
		}
		valid = append(valid, b)
	}

	var added, removed []Box
	for _, b := range valid {
		if b.Type == Added {
			added = append(added, b)
		} else {
			removed = append(removed, b)
		}
	}

	out := reconcileSameType(added, p)
	out = append(out, reconcileSameType(removed, p)...)
	return out
}

func reconcileSameType(boxes []Box, p Params) []Box {
	for iter := 0; iter < reconcileMaxIter; iter++ {
		var pruned, merged bool
		boxes, pruned = containmentPrune(boxes, p)
		boxes, merged = mergePass(boxes, p)
		if !pruned && !merged {
			break
		}
	}

	boxes = nonMaxSuppress(boxes, nmsIoUThreshold)

	// Merging two tiny artifacts can still produce a tiny box.
	minArea := float64(p.MinAreaPx)
	kept := boxes[:0]
	for _, b := range boxes {
		if b.Area() >= minArea {
			kept = append(kept, b)
		}
	}
	return kept
}

// containmentPrune drops boxes fully contained (within tolerance) in a
// padded larger box of the same type: a diff region and a fragment
// inside it are one change, not two. Ties go to the earlier-indexed
// box.
func containmentPrune(boxes []Box, p Params) ([]Box, bool) {
	pad := float64(p.PaddingPx)
	eps := p.ContainmentEpsPx
	dropped := make([]bool, len(boxes))
	changed := false
	for i := range boxes {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(boxes); j++ {
			if dropped[j] {
				continue
			}
			a, b := boxes[i], boxes[j]
			switch {
			case a.Contains(b, pad, eps) && a.Area() >= b.Area():
				dropped[j] = true
				changed = true
			case b.Contains(a, pad, eps) && b.Area() > a.Area():
				dropped[i] = true
				changed = true
			}
			if dropped[i] {
				break
			}
		}
	}
	if !changed {
		return boxes, false
	}
	kept := boxes[:0]
	for i, b := range boxes {
		if !dropped[i] {
			kept = append(kept, b)
		}
	}
	return kept, true
}

// mergePass replaces pairs that overlap enough or sit within the touch
// gap with their union. One visual change rasterized as disconnected
// fragments (a dashed line, a hatched area) collapses into one box.
func mergePass(boxes []Box, p Params) ([]Box, bool) {
	changed := false
	for {
		mergedAny := false
	scan:
		for i := 0; i < len(boxes); i++ {
			for j := i + 1; j < len(boxes); j++ {
				if boxes[i].IoU(boxes[j]) >= p.MergeIoU || boxes[i].Gap(boxes[j]) <= p.TouchGapPx {
					boxes[i] = boxes[i].Union(boxes[j])
					boxes = append(boxes[:j], boxes[j+1:]...)
					mergedAny = true
					changed = true
					break scan
				}
			}
		}
		if !mergedAny {
			return boxes, changed
		}
	}
}

// nonMaxSuppress keeps boxes in decreasing area order, discarding any
// that overlap an already-kept box beyond the threshold.
func nonMaxSuppress(boxes []Box, iouThr float64) []Box {
	if len(boxes) < 2 {
		return boxes
	}
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Area() > sorted[j].Area() })

	kept := sorted[:0]
	for _, b := range sorted {
		keep := true
		for _, k := range kept {
			if b.IoU(k) > iouThr {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, b)
		}
	}
	return kept
}

// SuppressUnchangedPairs removes Added/Removed pairs whose rounded
// geometry is identical within epsilon: the same rectangle reported
// twice is a resampling false positive, not a change.
func SuppressUnchangedPairs(removed, added []Box) ([]Box, []Box) {
	key := func(b Box) [4]int64 {
		return [4]int64{
			int64(math.Round(b.X0 / unchangedPairEpsPx)),
			int64(math.Round(b.Y0 / unchangedPairEpsPx)),
			int64(math.Round(b.X1 / unchangedPairEpsPx)),
			int64(math.Round(b.Y1 / unchangedPairEpsPx)),
		}
	}

	usedAdd := make(map[int]bool)
	keptRemoved := make([]Box, 0, len(removed))
	for _, r := range removed {
		rk := key(r)
		matched := -1
		for i, a := range added {
			if usedAdd[i] {
				continue
			}
			if key(a) == rk {
				matched = i
				break
			}
		}
		if matched >= 0 {
			usedAdd[matched] = true
			continue
		}
		keptRemoved = append(keptRemoved, r)
	}

	keptAdded := make([]Box, 0, len(added))
	for i, a := range added {
		if !usedAdd[i] {
			keptAdded = append(keptAdded, a)
		}
	}
	return keptRemoved, keptAdded
}

// SuppressMovedPairs removes Added/Removed pairs that represent the
// same content shifted by a few pixels. A pair qualifies only when the
// boxes match in size, their centers sit within a small distance, and
// (when both page images are supplied) the patch contents score as
// effectively identical. Geometry alone never suffices when images are
// available: a textual edit that also moved must survive.
func SuppressMovedPairs(removed, added []Box, oldImg, newImg *image.Gray) ([]Box, []Box) {
	if len(removed) == 0 || len(added) == 0 {
		return removed, added
	}

	usedAdd := make(map[int]bool)
	keptRemoved := make([]Box, 0, len(removed))
	for _, r := range removed {
		rcx, rcy := r.Center()
		matched := -1
		bestShift := math.Inf(1)
		for i, a := range added {
			if usedAdd[i] {
				continue
			}
			if !sizesMatch(r, a) {
				continue
			}
			acx, acy := a.Center()
			shift := math.Hypot(rcx-acx, rcy-acy)
			if shift > movedMaxCenterShiftPx || shift >= bestShift {
				continue
			}
			if oldImg != nil && newImg != nil {
				if patchSimilarity(oldImg, newImg, r, a) < movedMinPatchSim {
					continue
				}
			}
			matched = i
			bestShift = shift
		}
		if matched >= 0 {
			usedAdd[matched] = true
			continue
		}
		keptRemoved = append(keptRemoved, r)
	}

	keptAdded := make([]Box, 0, len(added))
	for i, a := range added {
		if !usedAdd[i] {
			keptAdded = append(keptAdded, a)
		}
	}
	return keptRemoved, keptAdded
}

func sizesMatch(a, b Box) bool {
	dw := math.Abs(a.Width() - b.Width())
	dh := math.Abs(a.Height() - b.Height())
	wOK := dw <= movedSizeAbsTolPx || dw <= movedSizeRelTol*math.Max(a.Width(), b.Width())
	hOK := dh <= movedSizeAbsTolPx || dh <= movedSizeRelTol*math.Max(a.Height(), b.Height())
	return wOK && hOK
}
