// Package format picks a capture encoding from an ordered preference list.
package format

// Pick tests each candidate MIME type against the device's capability
// query in list order and returns the first supported one. It returns
// the empty string when nothing matches; callers then let the device
// fall back to its implicit default encoding.
//
// Capability queries on some device backends blow up when handed a MIME
// string they have never seen. A panicking query counts as "not
// supported" for that candidate rather than propagating.
func Pick(candidates []string, supported func(string) bool) string {
	if supported == nil {
		return ""
	}
	for _, c := range candidates {
		if querySafely(supported, c) {
			return c
		}
	}
	return ""
}

func querySafely(supported func(string) bool, mimeType string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return supported(mimeType)
}
