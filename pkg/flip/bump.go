// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

// BumpExtras substitutes failed regular flips with decoded reserve flips
// on a 1:1 basis by swapping their extra flags. With F failures and E
// usable reserves, exactly min(F, E) failures are replaced; when F > E
// the remaining F-E flips are explicitly marked failed and stay
// unanswerable. Returns the patches to merge and the number replaced.
func BumpExtras(flips []Flip) ([]Patch, int) {
	extras := ExtraFlips(flips)
	if len(extras) == 0 {
		return nil, 0
	}
	failed := FailedFlips(flips)
	replaced := min(len(failed), len(extras))

	var patches []Patch
	for _, f := range failed[:replaced] {
		patches = append(patches, swapExtra(f))
	}
	for _, f := range failed[replaced:] {
		failedFlag := true
		patches = append(patches, Patch{Hash: f.Hash, Failed: &failedFlag})
	}
	for _, f := range extras[:replaced] {
		patches = append(patches, swapExtra(f))
	}
	return patches, replaced
}

// swapExtra produces a whole-flip patch with the extra flag negated,
// moving a failed regular flip into the reserve pool or promoting a
// reserve into the scored set.
func swapExtra(f Flip) Patch {
	f.Extra = !f.Extra
	return f.AsPatch()
}
