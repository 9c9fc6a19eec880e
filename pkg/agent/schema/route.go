package schema

import (
	"fmt"
	"strings"
)

// Route decides which specialists, if any, handle a turn.
type Route string

const (
	RouteEngineering  Route = "engineering"
	RouteApp          Route = "app"
	RouteData         Route = "data"
	RouteFullAnalysis Route = "full_analysis"
	RouteSmallTalk    Route = "small_talk"
)

// Domain names one specialist.
type Domain string

const (
	DomainData        Domain = "data"
	DomainEngineering Domain = "engineering"
	DomainApp         Domain = "app"
)

var routeDomains = map[Route][]Domain{
	RouteEngineering:  {DomainEngineering},
	RouteApp:          {DomainApp},
	RouteData:         {DomainData},
	RouteFullAnalysis: {DomainData, DomainEngineering},
	RouteSmallTalk:    nil,
}

// ParseRoute accepts only the exact route names; anything else is an error,
// never a default.
func ParseRoute(s string) (Route, error) {
	r := Route(strings.TrimSpace(s))
	if _, ok := routeDomains[r]; !ok {
		return "", fmt.Errorf("unknown route %q", s)
	}
	return r, nil
}

// Domains lists the specialists a route invokes, in invocation order.
func (r Route) Domains() []Domain {
	return append([]Domain(nil), routeDomains[r]...)
}

func (r Route) IsSpecialist() bool {
	return len(routeDomains[r]) > 0
}
