package generator

// Config drives the synthetic data generator.
type Config struct {
	NumRecipients  int
	NumInvoices    int
	NumPayouts     int
	VerifiedChance float64
	FlaggedChance  float64
	Seed           int64
}

// DefaultConfig returns baseline settings producing a realistic
// mid-size dataset.
func DefaultConfig() Config {
	return Config{
		NumRecipients:  500,
		NumInvoices:    2000,
		NumPayouts:     1500,
		VerifiedChance: 0.6,
		FlaggedChance:  0.05,
		Seed:           42,
	}
}
