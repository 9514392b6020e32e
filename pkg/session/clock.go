// Copyright (C) 2026 Attest Labs (dev@attest-net.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import "time"

// Remaining computes the time left until start+offset as of now, floored
// at zero. Protocol deadlines are anchored to the server-announced
// validation start, so the result stays correct across process
// suspension and restarts.
func Remaining(start time.Time, offset time.Duration, now time.Time) time.Duration {
	d := start.Add(offset).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
