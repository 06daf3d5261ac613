package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/watzon/autoimport/internal/models"
)

// ConflictKind identifies which uniqueness rule a conflict breaks.
type ConflictKind string

const (
	// ConflictDuplicateTimeID means two or more run schemes share a time id.
	ConflictDuplicateTimeID ConflictKind = "duplicate_time_id"
	// ConflictDuplicateOrder means two or more actions of one time id share an order.
	ConflictDuplicateOrder ConflictKind = "duplicate_order"
)

// Conflict is one finding reported by Validate.
type Conflict struct {
	Kind          ConflictKind
	Configuration string
	TimeIDs       []int // Duplicated time ids (ConflictDuplicateTimeID)
	TimeID        int   // Time id of the group (ConflictDuplicateOrder)
	Orders        []int // Duplicated orders (ConflictDuplicateOrder)
}

// String returns the message logged for the conflict.
func (c Conflict) String() string {
	switch c.Kind {
	case ConflictDuplicateTimeID:
		return fmt.Sprintf("Configuration '%s' has duplicate run scheme time ids: %s", c.Configuration, joinInts(c.TimeIDs))
	case ConflictDuplicateOrder:
		return fmt.Sprintf("Configuration '%s' has duplicate orders within run scheme %d. Orders: %s", c.Configuration, c.TimeID, joinInts(c.Orders))
	default:
		return fmt.Sprintf("Configuration '%s' has an unknown conflict", c.Configuration)
	}
}

// ValidConfiguration is a configuration that passed Validate. Extraction only
// accepts this type, so an invalid configuration can never be executed.
type ValidConfiguration struct {
	cfg *models.Configuration
}

// Configuration returns the validated configuration.
func (v *ValidConfiguration) Configuration() *models.Configuration {
	if v == nil {
		return nil
	}
	return v.cfg
}

// Validate checks cfg for duplicate run scheme time ids and for duplicate
// action orders within each time id. It reports every conflict, not just the first.
func Validate(cfg *models.Configuration) (bool, []Conflict) {
	if cfg == nil {
		return true, nil
	}

	var conflicts []Conflict

	timeIDs := cfg.TimeIDs()
	if dups := duplicates(timeIDs); len(dups) > 0 {
		conflicts = append(conflicts, Conflict{
			Kind:          ConflictDuplicateTimeID,
			Configuration: cfg.ServiceName,
			TimeIDs:       dups,
		})
	}

	allActions := cfg.AllActions()
	seen := make(map[int]bool, len(timeIDs))
	for _, timeID := range timeIDs {
		if seen[timeID] {
			continue
		}
		seen[timeID] = true

		var orders []int
		for _, action := range allActions {
			if action.TimeID == timeID {
				orders = append(orders, action.Order)
			}
		}

		if dups := duplicates(orders); len(dups) > 0 {
			conflicts = append(conflicts, Conflict{
				Kind:          ConflictDuplicateOrder,
				Configuration: cfg.ServiceName,
				TimeID:        timeID,
				Orders:        dups,
			})
		}
	}

	return len(conflicts) == 0, conflicts
}

// duplicates returns the values occurring more than once, ascending.
func duplicates(values []int) []int {
	counts := make(map[int]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	var dups []int
	for v, n := range counts {
		if n > 1 {
			dups = append(dups, v)
		}
	}
	sort.Ints(dups)
	return dups
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
