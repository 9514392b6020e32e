// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package flip

// Classification predicates over tracked flip lists. All are pure and
// allocation-light; they never mutate their input.

// EveryFetched reports whether the list is non-empty and every flip has
// its payload retrieved. Decode state is irrelevant here: decode-failed
// flips count as fetched and are handled by extra-flip substitution.
func EveryFetched(flips []Flip) bool {
	if len(flips) == 0 {
		return false
	}
	for _, f := range flips {
		if !f.Fetched {
			return false
		}
	}
	return true
}

// ReadyFlips returns the flips whose content the node reports available.
func ReadyFlips(flips []Flip) []Flip {
	return filter(flips, func(f Flip) bool { return f.Ready })
}

// WaitingForFetch returns the flips whose payload has not been retrieved.
func WaitingForFetch(flips []Flip) []Flip {
	return filter(flips, func(f Flip) bool { return !f.Fetched })
}

// WaitingForDecode returns the fetched flips that still need decoding.
// Failed flips are excluded: decode failure is terminal per item.
func WaitingForDecode(flips []Flip) []Flip {
	return filter(flips, func(f Flip) bool { return f.Fetched && !f.Decoded && !f.Failed })
}

// FailedFlips returns the non-extra flips that cannot be solved: either
// explicitly marked failed or still lacking a successful decode.
func FailedFlips(flips []Flip) []Flip {
	return filter(flips, func(f Flip) bool { return !f.Extra && (f.Failed || !f.Decoded) })
}

// RegularFlips returns the non-extra flips, the set shown to the
// participant during the short session.
func RegularFlips(flips []Flip) []Flip {
	return filter(flips, func(f Flip) bool { return !f.Extra })
}

// ExtraFlips returns the reserve flips available for substitution, which
// requires a successful decode.
func ExtraFlips(flips []Flip) []Flip {
	return filter(flips, func(f Flip) bool { return f.Extra && f.Decoded })
}

// SolvableFlips returns the non-extra flips with a successful decode,
// the set that counts towards answer thresholds.
func SolvableFlips(flips []Flip) []Flip {
	return filter(flips, func(f Flip) bool { return !f.Extra && f.Decoded })
}

// Hashes projects the hash of each flip, preserving order.
func Hashes(flips []Flip) []string {
	out := make([]string, len(flips))
	for i, f := range flips {
		out[i] = f.Hash
	}
	return out
}

func filter(flips []Flip, keep func(Flip) bool) []Flip {
	var out []Flip
	for _, f := range flips {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
