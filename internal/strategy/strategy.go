package strategy

import (
	"github.com/angeloszaimis/apiswitch/internal/probe"
)

// Strategy picks a failover target from scan results. order is the endpoint
// declaration order; exclude names the endpoint being replaced.
type Strategy interface {
	Select(order []string, results map[string]probe.Result, exclude string) (string, bool)
}
