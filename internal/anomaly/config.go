package anomaly

// Default rule parameters.
const (
	DefaultLeadTimeMaxDays    = 365.0
	DefaultLeadTimeStdDevs    = 3.0
	DefaultLeadTimeMinSamples = 5
)

// Config tunes the detector rules.
type Config struct {
	StockKeywords    []string
	QuantityKeywords []string
	LeadTimeKeywords []string
	// LeadTimeMaxDays is the hard cap above which a lead time is a warning.
	LeadTimeMaxDays float64
	// LeadTimeStdDevs is the distance from the mean of the file's other lead times,
	// in their standard deviations, beyond which an in-range lead time is reported as info.
	LeadTimeStdDevs float64
	// LeadTimeMinSamples is the number of other in-range lead times a value is compared
	// against before the statistical bound is applied.
	LeadTimeMinSamples int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		StockKeywords:      DefaultStockKeywords,
		QuantityKeywords:   DefaultQuantityKeywords,
		LeadTimeKeywords:   DefaultLeadTimeKeywords,
		LeadTimeMaxDays:    DefaultLeadTimeMaxDays,
		LeadTimeStdDevs:    DefaultLeadTimeStdDevs,
		LeadTimeMinSamples: DefaultLeadTimeMinSamples,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.StockKeywords == nil {
		c.StockKeywords = def.StockKeywords
	}
	if c.QuantityKeywords == nil {
		c.QuantityKeywords = def.QuantityKeywords
	}
	if c.LeadTimeKeywords == nil {
		c.LeadTimeKeywords = def.LeadTimeKeywords
	}
	if c.LeadTimeMaxDays <= 0 {
		c.LeadTimeMaxDays = def.LeadTimeMaxDays
	}
	if c.LeadTimeStdDevs <= 0 {
		c.LeadTimeStdDevs = def.LeadTimeStdDevs
	}
	if c.LeadTimeMinSamples < 2 {
		c.LeadTimeMinSamples = def.LeadTimeMinSamples
	}
	return c
}
