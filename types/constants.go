package types

const (
	// MaxRatings is the number of rating slots in the circuit input. The
	// circuit arity is fixed; shorter review histories are zero padded.
	MaxRatings = 20
	// MaxReviewHashes is the number of review hash slots in the circuit input.
	MaxReviewHashes = 16
	// RatingScale is the factor applied to the average rating before
	// truncation, so 4.67 becomes 467.
	RatingScale = 100
	// UptimeBpsScale converts uptime hours to the basis point encoding the
	// circuit expects.
	UptimeBpsScale = 100
	// MonitoringWindow is the number of most recent monitoring samples
	// snapshotted into a proof record.
	MonitoringWindow = 7
	// AgentIDMask keeps the numeric agent identifier within the field width
	// the circuit reserves for it (20 bits).
	AgentIDMask = 0xfffff
	// NumPublicSignals is the number of public signals emitted by the
	// reputation circuit.
	NumPublicSignals = 9
	// MinRating and MaxRating bound a review rating.
	MinRating = 1
	MaxRating = 5
)
