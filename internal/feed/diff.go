package feed

// Diff returns the events present in previous but absent from current, keyed
// by ARN content only: field-value differences on a matching ARN do not make
// an event "new". When the active filter excludes closed events this
// difference is exactly the set of events closed since the last run.
//
// Order follows previous, so rendering the result is deterministic given a
// deterministic snapshot.
func Diff(previous, current []Event) []Event {
	if len(previous) == 0 {
		return nil
	}
	cur := make(map[string]struct{}, len(current))
	for _, e := range current {
		cur[e.Arn] = struct{}{}
	}
	var gone []Event
	for _, e := range previous {
		if _, ok := cur[e.Arn]; !ok {
			gone = append(gone, e)
		}
	}
	return gone
}
