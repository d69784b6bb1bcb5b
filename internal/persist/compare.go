package persist

// FirstDivergence walks two frame-ordered digest runs in step and returns the
// first frame where they disagree. A frame present in only one run counts as a
// divergence; trailing frames of the longer run do not.
func FirstDivergence(a, b []FrameDigest) (frame uint64, diverged bool) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Frame < b[j].Frame:
			return a[i].Frame, true
		case b[j].Frame < a[i].Frame:
			return b[j].Frame, true
		case a[i].Digest != b[j].Digest:
			return a[i].Frame, true
		}
		i++
		j++
	}
	return 0, false
}
