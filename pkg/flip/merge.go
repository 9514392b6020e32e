// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

// Patch is a partial update to a tracked flip, keyed by hash. Nil pointer
// and nil slice fields mean "leave the base value intact"; set fields win.
//
// Patches are how asynchronous sub-flow results (hash lists, fetches,
// decodes, answers) are folded back into the session's tracked lists
// without losing progress recorded by earlier, unrelated updates.
type Patch struct {
	Hash      string
	Ready     *bool
	Fetched   *bool
	Decoded   *bool
	Failed    *bool
	Extra     *bool
	Payload   []byte
	Images    [][]byte
	Orders    [][]int
	Option    *int
	Relevance *Relevance
	Words     []string
}

// AsPatch converts a whole flip into a patch that sets every field. Used
// where an update carries a complete replacement record, such as
// extra-flip substitution.
func (f Flip) AsPatch() Patch {
	ready, fetched, decoded, failed, extra := f.Ready, f.Fetched, f.Decoded, f.Failed, f.Extra
	option, relevance := f.Option, f.Relevance
	return Patch{
		Hash:      f.Hash,
		Ready:     &ready,
		Fetched:   &fetched,
		Decoded:   &decoded,
		Failed:    &failed,
		Extra:     &extra,
		Payload:   f.Payload,
		Images:    f.Images,
		Orders:    f.Orders,
		Option:    &option,
		Relevance: &relevance,
		Words:     f.Words,
	}
}

// Merge overlays patches onto base by hash. For each element of base the
// last matching patch is applied field-wise; elements with no matching
// patch pass through unchanged. Order and length of base are preserved,
// and patches for hashes absent from base are dropped: Merge never grows
// the list. Applying the same patches twice yields the same result.
func Merge(base []Flip, patches []Patch) []Flip {
	if len(patches) == 0 {
		out := make([]Flip, len(base))
		copy(out, base)
		return out
	}
	byHash := make(map[string]Patch, len(patches))
	for _, p := range patches {
		byHash[p.Hash] = p
	}
	out := make([]Flip, len(base))
	for i, f := range base {
		if p, ok := byHash[f.Hash]; ok {
			f = apply(f, p)
		}
		out[i] = f
	}
	return out
}

func apply(f Flip, p Patch) Flip {
	if p.Ready != nil {
		f.Ready = *p.Ready
	}
	if p.Fetched != nil {
		f.Fetched = *p.Fetched
	}
	if p.Decoded != nil {
		f.Decoded = *p.Decoded
	}
	if p.Failed != nil {
		f.Failed = *p.Failed
	}
	if p.Extra != nil {
		f.Extra = *p.Extra
	}
	if p.Payload != nil {
		f.Payload = p.Payload
	}
	if p.Images != nil {
		f.Images = p.Images
	}
	if p.Orders != nil {
		f.Orders = p.Orders
	}
	if p.Option != nil {
		f.Option = *p.Option
	}
	if p.Relevance != nil {
		f.Relevance = *p.Relevance
	}
	if p.Words != nil {
		f.Words = p.Words
	}
	return f
}

// HashPatches converts a retrieved hash list into patches carrying only
// the availability flags (ready, extra), for overlaying onto an
// already-populated list without disturbing fetch or decode progress.
func HashPatches(entries []HashEntry) []Patch {
	patches := make([]Patch, len(entries))
	for i, e := range entries {
		ready, extra := e.Ready, e.Extra
		patches[i] = Patch{Hash: e.Hash, Ready: &ready, Extra: &extra}
	}
	return patches
}
