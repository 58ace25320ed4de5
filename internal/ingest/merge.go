package ingest

import "horse.fit/showlist/internal/db"

// MergeEventData computes a fill-only update: a field is copied from incoming
// only when the existing event has no value for it.
func MergeEventData(existing db.Event, incoming db.EventContent) db.EventPatch {
	var patch db.EventPatch
	if isBlank(existing.Description) && !isBlank(incoming.Description) {
		patch.Description = incoming.Description
	}
	if isBlank(existing.ImageURL) && !isBlank(incoming.ImageURL) {
		patch.ImageURL = incoming.ImageURL
	}
	if isBlank(existing.CoverCharge) && !isBlank(incoming.CoverCharge) {
		patch.CoverCharge = incoming.CoverCharge
	}
	if isBlank(existing.TicketURL) && !isBlank(incoming.TicketURL) {
		patch.TicketURL = incoming.TicketURL
	}
	if existing.DoorsTime == nil && incoming.DoorsTime != nil {
		patch.DoorsTime = incoming.DoorsTime
	}
	if existing.EndTime == nil && incoming.EndTime != nil {
		patch.EndTime = incoming.EndTime
	}
	return patch
}
