package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/watzon/autoimport/internal/models"
)

// callLog records handler invocations across handler instances.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// recordingFactory returns a factory whose handlers log "<kind>:<order>" and
// fail for the orders listed in failOn.
func recordingFactory(calls *callLog, built *int, failOn ...int) Factory {
	return func() Handler {
		if built != nil {
			*built++
		}
		return HandlerFunc(func(ctx context.Context, action *models.Action) error {
			calls.add(fmt.Sprintf("%s:%d", action.Kind, action.Order))
			for _, o := range failOn {
				if o == action.Order {
					return fmt.Errorf("order %d exploded", o)
				}
			}
			return nil
		})
	}
}

func testRegistry(calls *callLog, failOn ...int) *Registry {
	r := NewRegistry()
	r.Register(models.KindQuery, recordingFactory(calls, nil, failOn...))
	r.Register(models.KindHTTPAPI, recordingFactory(calls, nil, failOn...))
	return r
}

func mustValidate(t *testing.T, s *Service, cfg *models.Configuration) *ValidConfiguration {
	t.Helper()
	valid, conflicts := s.Validate(cfg)
	require.Empty(t, conflicts)
	require.NotNil(t, valid)
	return valid
}

func query(timeID, order int) *models.Action {
	return &models.Action{Kind: models.KindQuery, TimeID: timeID, Order: order, Query: &models.QueryAction{Query: "SELECT 1"}}
}

func httpAPI(timeID, order int) *models.Action {
	return &models.Action{Kind: models.KindHTTPAPI, TimeID: timeID, Order: order, HTTPAPI: &models.HTTPAPIAction{Method: "GET", URL: "http://example.invalid"}}
}

func customLogSettings() *models.LogSettings {
	return &models.LogSettings{MinimumLevel: zerolog.WarnLevel, LogRunBody: true}
}
