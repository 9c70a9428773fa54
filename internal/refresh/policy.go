// FilePath: internal/refresh/policy.go
package refresh

import "time"

// Class groups tracked queries by how aggressively they are kept fresh
type Class string

const (
	ClassDeviceSummaries Class = "device_summaries"
	ClassAlerts          Class = "alerts"
	ClassRules           Class = "rules"
	ClassAssets          Class = "assets"
	ClassSensorLatest    Class = "sensor_latest"
	ClassSensorHistory   Class = "sensor_history"
)

// Policy is the staleness/poll parameters of one data class. A zero
// PollInterval means no forced background poll: the data goes stale and is
// refetched on demand only.
type Policy struct {
	StaleTTL     time.Duration `mapstructure:"stale_ttl"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// DefaultPolicies returns the built-in per-class table. The values mirror the
// product's query cadences: device state polls fast, alerts a little slower,
// reference data ages out on a minutes scale without forced polling.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassDeviceSummaries: {StaleTTL: 20 * time.Second, PollInterval: 30 * time.Second},
		ClassAlerts:          {StaleTTL: 30 * time.Second, PollInterval: 60 * time.Second},
		ClassRules:           {StaleTTL: 5 * time.Minute},
		ClassAssets:          {StaleTTL: 10 * time.Minute},
		ClassSensorLatest:    {StaleTTL: 20 * time.Second, PollInterval: 30 * time.Second},
		ClassSensorHistory:   {StaleTTL: 60 * time.Second},
	}
}
