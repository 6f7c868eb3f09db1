package video

// Credit pricing: one credit buys a 10-second clip at base quality.
// Higher resolutions multiply the rate, longer clips bill in
// 10-second blocks rounded up.
const (
	baseCreditCost  = 1
	secondsPerBlock = 10
)

// CreditsFor returns the credit cost of a job with the given settings
func CreditsFor(s Settings) int64 {
	cost := int64(baseCreditCost)

	switch s.Resolution {
	case "fhd":
		cost *= 2
	case "4k":
		cost *= 4
	}

	duration := s.Duration
	if duration <= 0 {
		duration = secondsPerBlock
	}
	blocks := int64((duration + secondsPerBlock - 1) / secondsPerBlock)

	return cost * blocks
}
