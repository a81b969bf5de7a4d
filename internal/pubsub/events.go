package pubsub

// PointsEarned reports a points balance change on a tracked channel.
type PointsEarned struct {
	ChannelID  string
	Login      string
	Earned     int
	NewBalance int
	ReasonCode string
}

// ClaimAvailable reports a bonus claim ready to be taken.
type ClaimAvailable struct {
	ChannelID string
	Login     string
	ClaimID   string
}

// ChannelOffline reports a stream-down notice for a tracked channel.
type ChannelOffline struct {
	ChannelID string
	Login     string
}

// LivenessSignal reports platform activity (viewcount heartbeat or a
// stream-up notice) on a channel. It does not by itself assert "online";
// consumers re-verify through the status tracker, which absorbs the
// false-positive window right after a stream ends.
type LivenessSignal struct {
	ChannelID string
	Login     string
	Viewers   int
}

// RaidUpdate reports a raid announced on a tracked channel.
type RaidUpdate struct {
	ChannelID   string
	Login       string
	RaidID      string
	TargetLogin string
}

// EventHandler receives the typed events the pool dispatches. Handlers run
// on the pool's routing goroutine and must not block for long.
type EventHandler interface {
	HandlePointsEarned(e PointsEarned)
	HandleClaimAvailable(e ClaimAvailable)
	HandleChannelOffline(e ChannelOffline)
	HandleLivenessSignal(e LivenessSignal)
	HandleRaidUpdate(e RaidUpdate)
}
