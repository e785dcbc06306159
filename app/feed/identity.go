package feed

import "cmp"

// Identity derives the stable key that joins the same logical item across
// two parses of a feed: the feed-provided UID when present, otherwise a
// composite of the title and the due or start token. Two identical untitled
// same-day items without a UID collide; the reconciler treats the later one
// as an update of the earlier rather than papering over it.
func Identity(item CalendarItem) string {
	if item.UID != "" {
		return item.UID
	}
	return item.Title + "|" + cmp.Or(item.DueRaw, item.StartRaw)
}
