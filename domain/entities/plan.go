package entities

import (
	"fmt"
	"time"
)

// Plan is a hosting tier: what a bot costs and how long it runs before the
// expiry sweep reclaims it.
type Plan struct {
	ID       string
	Price    int64 // wallet minor units, charged at creation
	Duration time.Duration
	RAMMB    int
}

var plans = map[string]Plan{
	"starter": {ID: "starter", Price: 40, Duration: 30 * 24 * time.Hour, RAMMB: 256},
	"basic":   {ID: "basic", Price: 100, Duration: 30 * 24 * time.Hour, RAMMB: 512},
	"premium": {ID: "premium", Price: 250, Duration: 30 * 24 * time.Hour, RAMMB: 1024},
}

// PlanByID looks up a hosting plan by its identifier
func PlanByID(id string) (Plan, error) {
	plan, ok := plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", id)
	}
	return plan, nil
}
