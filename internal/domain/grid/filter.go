package grid

import (
	"fmt"
	"strings"

	"github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

// StatusFilter decides which bars a row shows.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterOccupied  StatusFilter = "occupied"
	FilterPending   StatusFilter = "pending"
	FilterAvailable StatusFilter = "available"
	FilterBlocked   StatusFilter = "blocked"
)

// ParseStatusFilter accepts the API names and the dashboard's Spanish ones.
// An empty value means all.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "todos":
		return FilterAll, nil
	case "occupied", "ocupado":
		return FilterOccupied, nil
	case "pending", "pendiente":
		return FilterPending, nil
	case "available", "disponible":
		return FilterAvailable, nil
	case "blocked", "bloqueado":
		return FilterBlocked, nil
	default:
		return "", fmt.Errorf("grid: unknown status filter %q", raw)
	}
}

// Allows reports whether iv gets a bar under the filter. Inactive intervals
// never do.
func (f StatusFilter) Allows(iv availability.Interval) bool {
	if !iv.Active() {
		return false
	}
	switch f {
	case FilterAvailable:
		return false
	case FilterOccupied:
		return iv.Kind != availability.KindBlock
	case FilterBlocked:
		return iv.Kind == availability.KindBlock
	case FilterPending:
		return iv.Kind == availability.KindReservation && iv.Status == availability.StatusPending
	default:
		return true
	}
}
