package compare

import "math"

// MatchElements compares two element sets with a greedy first-match
// strategy: each old element claims the first unclaimed new element
// whose IoU meets the threshold. Matched pairs with differing text
// count as changed and surface on both sides. Unmatched old elements
// come back as removed, unmatched new elements as added.
func MatchElements(oldEls, newEls []Element, iouThreshold float64) (removed, added []Element) {
	claimed := make([]bool, len(newEls))

	for _, oe := range oldEls {
		matched := false
		for j, ne := range newEls {
			if claimed[j] {
				continue
			}
			if oe.Rect.IoU(ne.Rect) < iouThreshold {
				continue
			}
			claimed[j] = true
			matched = true
			if oe.Text != ne.Text {
				removed = append(removed, oe)
				added = append(added, ne)
			}
			break
		}
		if !matched {
			removed = append(removed, oe)
		}
	}

	for j, ne := range newEls {
		if !claimed[j] {
			added = append(added, ne)
		}
	}
	return removed, added
}

// MatchElementsAdaptive retries matching at progressively looser IoU
// thresholds, from 1.0 down to minIoU in steps of 0.05, and stops
// early once the outcome stabilizes or no differences remain.
func MatchElementsAdaptive(oldEls, newEls []Element, minIoU float64, p Params) (removed, added []Element) {
	var prevRemoved, prevAdded []Element
	first := true

	for thr := 1.0; thr >= minIoU-1e-9; thr -= 0.05 {
		r, a := MatchElements(oldEls, newEls, thr)
		r, a = suppressUnchangedElements(r, a)
		r, a = suppressMovedSameText(r, a, p)
		if len(r) == 0 && len(a) == 0 {
			return nil, nil
		}
		if !first && elementsEqual(r, prevRemoved) && elementsEqual(a, prevAdded) {
			return r, a
		}
		prevRemoved, prevAdded = r, a
		first = false
	}
	return prevRemoved, prevAdded
}

// suppressUnchangedElements drops removed/added pairs that are the
// same element reported on both sides: identical text with a
// near-identical rectangle.
func suppressUnchangedElements(removed, added []Element) ([]Element, []Element) {
	const eps = 0.01

	usedAdd := make([]bool, len(added))
	var keepRemoved []Element
	for _, re := range removed {
		paired := false
		for j, ae := range added {
			if usedAdd[j] || re.Text != ae.Text {
				continue
			}
			if rectsClose(re.Rect, ae.Rect, eps) {
				usedAdd[j] = true
				paired = true
				break
			}
		}
		if !paired {
			keepRemoved = append(keepRemoved, re)
		}
	}
	var keepAdded []Element
	for j, ae := range added {
		if !usedAdd[j] {
			keepAdded = append(keepAdded, ae)
		}
	}
	return keepRemoved, keepAdded
}

// suppressMovedSameText drops pairs where the same text shifted by a
// small distance without changing size. Text equality is required:
// differing text always survives as a change, no matter how close the
// geometry.
func suppressMovedSameText(removed, added []Element, p Params) ([]Element, []Element) {
	usedAdd := make([]bool, len(added))
	var keepRemoved []Element
	for _, re := range removed {
		paired := false
		for j, ae := range added {
			if usedAdd[j] || re.Text == "" || re.Text != ae.Text {
				continue
			}
			if !elementSizesMatch(re.Rect, ae.Rect, p.SizeEpsPts) {
				continue
			}
			rcx, rcy := re.Rect.Center()
			acx, acy := ae.Rect.Center()
			if math.Hypot(rcx-acx, rcy-acy) > p.PosTolerancePts {
				continue
			}
			usedAdd[j] = true
			paired = true
			break
		}
		if !paired {
			keepRemoved = append(keepRemoved, re)
		}
	}
	var keepAdded []Element
	for j, ae := range added {
		if !usedAdd[j] {
			keepAdded = append(keepAdded, ae)
		}
	}
	return keepRemoved, keepAdded
}

func elementSizesMatch(a, b RectPDF, eps float64) bool {
	dw := math.Abs(a.Width() - b.Width())
	dh := math.Abs(a.Height() - b.Height())
	relW := math.Max(a.Width(), b.Width()) * 0.1
	relH := math.Max(a.Height(), b.Height()) * 0.1
	return dw <= math.Max(eps, relW) && dh <= math.Max(eps, relH)
}

func rectsClose(a, b RectPDF, eps float64) bool {
	return math.Abs(a.X0-b.X0) <= eps &&
		math.Abs(a.Y0-b.Y0) <= eps &&
		math.Abs(a.X1-b.X1) <= eps &&
		math.Abs(a.Y1-b.Y1) <= eps
}

func elementsEqual(a, b []Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Text != b[i].Text || !rectsClose(a[i].Rect, b[i].Rect, 1e-9) {
			return false
		}
	}
	return true
}
