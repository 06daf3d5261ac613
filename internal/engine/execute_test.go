package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/watzon/autoimport/internal/models"
)

func TestExecute_RunsInAscendingOrder(t *testing.T) {
	calls := &callLog{}
	s := New(testRegistry(calls), WithName("orders"))

	cfg := &models.Configuration{
		ServiceName: "orders",
		RunSchemes:  []models.RunScheme{{TimeID: 2}},
		Queries:     []*models.Action{query(2, 1)},
		HTTPAPIs:    []*models.Action{httpAPI(2, 2)},
	}
	require.NoError(t, s.ExtractActions(2, mustValidate(t, s, cfg)))
	require.NoError(t, s.Execute(context.Background()))

	require.Equal(t, []string{"query:1", "http_api:2"}, calls.list())
	require.Equal(t, StateIdle, s.State())
	require.Equal(t, StateCompleted, s.LastOutcome())
}

func TestExecute_SequentialNoOverlap(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		overlap bool
		order   []int
	)
	r := NewRegistry()
	r.Register(models.KindQuery, func() Handler {
		return HandlerFunc(func(ctx context.Context, action *models.Action) error {
			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			order = append(order, action.Order)
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		})
	})

	cfg := &models.Configuration{
		ServiceName: "orders",
		RunSchemes:  []models.RunScheme{{TimeID: 1}},
		Queries:     []*models.Action{query(1, 30), query(1, 10), query(1, 20), query(1, 5)},
	}
	s := New(r)
	require.NoError(t, s.ExtractActions(1, mustValidate(t, s, cfg)))
	require.NoError(t, s.Execute(context.Background()))

	require.False(t, overlap)
	require.Equal(t, []int{5, 10, 20, 30}, order)
}

func TestExecute_FailFast(t *testing.T) {
	calls := &callLog{}
	s := New(testRegistry(calls, 1), WithName("orders"))

	cfg := &models.Configuration{
		ServiceName: "orders",
		RunSchemes:  []models.RunScheme{{TimeID: 1}},
		Queries:     []*models.Action{query(1, 1), query(1, 3)},
		HTTPAPIs:    []*models.Action{httpAPI(1, 2)},
	}
	require.NoError(t, s.ExtractActions(1, mustValidate(t, s, cfg)))

	err := s.Execute(context.Background())
	require.Error(t, err)

	var execErr *HandlerExecutionError
	require.True(t, errors.As(err, &execErr))
	require.Equal(t, "orders", execErr.Configuration)
	require.Equal(t, 1, execErr.TimeID)
	require.Equal(t, 1, execErr.Order)
	require.Equal(t, models.KindQuery, execErr.Kind)
	require.EqualError(t, execErr.Unwrap(), "order 1 exploded")

	require.Equal(t, []string{"query:1"}, calls.list())
	require.Equal(t, StateIdle, s.State())
	require.Equal(t, StateFailed, s.LastOutcome())
}

func TestExecute_FailureInTheMiddle(t *testing.T) {
	calls := &callLog{}
	s := New(testRegistry(calls, 2))

	cfg := &models.Configuration{
		RunSchemes: []models.RunScheme{{TimeID: 1}},
		Queries:    []*models.Action{query(1, 1), query(1, 2), query(1, 3), query(1, 4)},
	}
	require.NoError(t, s.ExtractActions(1, mustValidate(t, s, cfg)))
	require.Error(t, s.Execute(context.Background()))
	require.Equal(t, []string{"query:1", "query:2"}, calls.list())
}

func TestExecute_CancellationStopsRemainingActions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := &callLog{}
	r := NewRegistry()
	r.Register(models.KindQuery, func() Handler {
		return HandlerFunc(func(ctx context.Context, action *models.Action) error {
			calls.add("query")
			// Shutdown arrives while the first action is in flight.
			cancel()
			return nil
		})
	})

	cfg := &models.Configuration{
		RunSchemes: []models.RunScheme{{TimeID: 1}},
		Queries:    []*models.Action{query(1, 1), query(1, 2)},
	}
	s := New(r)
	require.NoError(t, s.ExtractActions(1, mustValidate(t, s, cfg)))

	err := s.Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"query"}, calls.list())
	require.Equal(t, StateFailed, s.LastOutcome())
}

func TestExecute_CancellationPropagatesIntoHandler(t *testing.T) {
	r := NewRegistry()
	r.Register(models.KindHTTPAPI, func() Handler {
		return HandlerFunc(func(ctx context.Context, action *models.Action) error {
			<-ctx.Done()
			return ctx.Err()
		})
	})

	var results []ActionResult
	cfg := &models.Configuration{
		RunSchemes: []models.RunScheme{{TimeID: 1}},
		HTTPAPIs:   []*models.Action{httpAPI(1, 1)},
	}
	s := New(r, WithObserver(ObserverFunc(func(ctx context.Context, result ActionResult) {
		results = append(results, result)
	})))
	require.NoError(t, s.ExtractActions(1, mustValidate(t, s, cfg)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.Execute(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var execErr *HandlerExecutionError
	require.True(t, errors.As(err, &execErr))
	require.Len(t, results, 1)
	require.Equal(t, ActionCanceled, results[0].Status)
}

func TestExecute_ReturnsToIdleAfterRun(t *testing.T) {
	calls := &callLog{}
	s := New(testRegistry(calls, 2))
	require.Equal(t, StateIdle, s.LastOutcome())

	cfg := &models.Configuration{
		RunSchemes: []models.RunScheme{{TimeID: 1}, {TimeID: 2}},
		Queries:    []*models.Action{query(1, 1), query(2, 2)},
	}
	valid := mustValidate(t, s, cfg)

	require.NoError(t, s.ExtractActions(1, valid))
	require.NoError(t, s.Execute(context.Background()))
	require.Equal(t, StateIdle, s.State())
	require.Equal(t, StateCompleted, s.LastOutcome())
	require.Empty(t, s.Actions())

	require.NoError(t, s.ExtractActions(2, valid))
	require.Equal(t, StateReady, s.State())
	require.Error(t, s.Execute(context.Background()))
	require.Equal(t, StateIdle, s.State())
	require.Equal(t, StateFailed, s.LastOutcome())
	require.Empty(t, s.Actions())
}

func TestExecute_RequiresExtraction(t *testing.T) {
	s := New(testRegistry(&callLog{}))
	require.ErrorIs(t, s.Execute(context.Background()), ErrNotReady)
}

func TestExecute_OncePerExtraction(t *testing.T) {
	calls := &callLog{}
	s := New(testRegistry(calls))

	cfg := &models.Configuration{
		RunSchemes: []models.RunScheme{{TimeID: 1}},
		Queries:    []*models.Action{query(1, 1)},
	}
	valid := mustValidate(t, s, cfg)

	require.NoError(t, s.ExtractActions(1, valid))
	require.NoError(t, s.Execute(context.Background()))
	require.ErrorIs(t, s.Execute(context.Background()), ErrNotReady)

	require.NoError(t, s.ExtractActions(1, valid))
	require.NoError(t, s.Execute(context.Background()))
	require.Len(t, calls.list(), 2)
}

func TestExecute_BusyWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	r := NewRegistry()
	r.Register(models.KindQuery, func() Handler {
		return HandlerFunc(func(ctx context.Context, action *models.Action) error {
			close(started)
			<-release
			return nil
		})
	})

	cfg := &models.Configuration{
		RunSchemes: []models.RunScheme{{TimeID: 1}},
		Queries:    []*models.Action{query(1, 1)},
	}
	s := New(r)
	valid := mustValidate(t, s, cfg)
	require.NoError(t, s.ExtractActions(1, valid))

	done := make(chan error, 1)
	go func() { done <- s.Execute(context.Background()) }()

	<-started
	require.Equal(t, StateExecuting, s.State())
	require.ErrorIs(t, s.ExtractActions(1, valid), ErrBusy)
	require.ErrorIs(t, s.Execute(context.Background()), ErrBusy)
	require.ErrorIs(t, s.Reset(), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, s.Reset())
	require.Equal(t, StateIdle, s.State())
	require.Empty(t, s.Actions())
}

func TestExecute_HandlerPanicBecomesError(t *testing.T) {
	calls := &callLog{}
	r := NewRegistry()
	r.Register(models.KindQuery, func() Handler {
		return HandlerFunc(func(ctx context.Context, action *models.Action) error {
			panic("boom")
		})
	})
	r.Register(models.KindHTTPAPI, recordingFactory(calls, nil))

	cfg := &models.Configuration{
		RunSchemes: []models.RunScheme{{TimeID: 1}},
		Queries:    []*models.Action{query(1, 1)},
		HTTPAPIs:   []*models.Action{httpAPI(1, 2)},
	}
	s := New(r)
	require.NoError(t, s.ExtractActions(1, mustValidate(t, s, cfg)))

	err := s.Execute(context.Background())
	require.ErrorContains(t, err, "panic: boom")
	require.Empty(t, calls.list())
}

func TestExecute_ObserversSeeEveryAction(t *testing.T) {
	var results []ActionResult
	obs := ObserverFunc(func(ctx context.Context, result ActionResult) {
		results = append(results, result)
	})

	s := New(testRegistry(&callLog{}, 2), WithName("orders"), WithObserver(obs))
	cfg := &models.Configuration{
		ServiceName: "orders",
		RunSchemes:  []models.RunScheme{{TimeID: 4}},
		Queries:     []*models.Action{query(4, 1), query(4, 3)},
		HTTPAPIs:    []*models.Action{httpAPI(4, 2)},
	}
	require.NoError(t, s.ExtractActions(4, mustValidate(t, s, cfg)))
	require.Error(t, s.Execute(context.Background()))

	require.Len(t, results, 2)
	require.Equal(t, ActionSucceeded, results[0].Status)
	require.Equal(t, 1, results[0].Order)
	require.Equal(t, ActionFailed, results[1].Status)
	require.Equal(t, models.KindHTTPAPI, results[1].Kind)
	require.Equal(t, "orders", results[1].Configuration)
	require.Equal(t, results[0].RunID, results[1].RunID)
	require.NotEmpty(t, results[0].RunID)
	require.Error(t, results[1].Err)
}

func TestExecute_IndependentInstancesRunConcurrently(t *testing.T) {
	calls := &callLog{}
	r := testRegistry(calls)

	cfg := &models.Configuration{
		ServiceName: "orders",
		RunSchemes:  []models.RunScheme{{TimeID: 1}, {TimeID: 2}},
		Queries:     []*models.Action{query(1, 1), query(2, 1)},
		HTTPAPIs:    []*models.Action{httpAPI(1, 2), httpAPI(2, 2)},
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(timeID int) {
			defer wg.Done()
			s := New(r, WithName("orders"))
			valid, conflicts := s.Validate(cfg)
			if len(conflicts) > 0 {
				errs <- errors.New("unexpected conflicts")
				return
			}
			if err := s.ExtractActions(timeID, valid); err != nil {
				errs <- err
				return
			}
			errs <- s.Execute(context.Background())
		}(i%2 + 1)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Len(t, calls.list(), 16)
}
