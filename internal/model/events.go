package model

// Event tags user-visible log lines so transitions are easy to grep.
type Event string

const (
	EventGainForWatch   Event = "GAIN_FOR_WATCH"
	EventGainForClaim   Event = "GAIN_FOR_CLAIM"
	EventGainForRaid    Event = "GAIN_FOR_RAID"
	EventBonusClaim     Event = "BONUS_CLAIM"
	EventChannelOnline  Event = "CHANNEL_ONLINE"
	EventChannelOffline Event = "CHANNEL_OFFLINE"
	EventWatching       Event = "WATCHING"
	EventJoinRaid       Event = "JOIN_RAID"
)

// MapReasonToEvent resolves a points reason code to its log event.
func MapReasonToEvent(reasonCode string) Event {
	switch reasonCode {
	case "CLAIM":
		return EventGainForClaim
	case "RAID":
		return EventGainForRaid
	default:
		return EventGainForWatch
	}
}
