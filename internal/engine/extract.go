package engine

import (
	"fmt"
	"sort"

	"github.com/watzon/autoimport/internal/logging"
	"github.com/watzon/autoimport/internal/models"
)

// ExtractActions replaces the extracted action set with the actions of valid
// bound to timeID and makes sure a handler is cached for every kind among them.
//
// Actions without log settings receive the instance's settings. The
// configuration itself is never modified: the extracted set holds copies.
//
// On error the instance is left idle with an empty action set.
func (s *Service) ExtractActions(timeID int, valid *ValidConfiguration) error {
	cfg := valid.Configuration()
	if cfg == nil {
		return ErrNotValidated
	}

	s.mu.Lock()
	if s.state == StateExtracting || s.state == StateExecuting {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateExtracting
	s.timeID = timeID
	s.clearLocked()
	name := s.name
	settings := s.logSettings
	s.mu.Unlock()

	actions, err := s.extract(name, timeID, settings, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.clearLocked()
		s.state = StateIdle
		return err
	}

	s.actions = actions
	s.orders = make([]int, 0, len(actions))
	for order := range actions {
		s.orders = append(s.orders, order)
	}
	sort.Ints(s.orders)
	s.state = StateReady

	logging.Info(logging.StartAndStop, settings).
		Str("configuration", name).
		Int("time_id", timeID).
		Int("actions", len(actions)).
		Msg(actionCountMessage(name, len(actions)))

	return nil
}

func actionCountMessage(name string, n int) string {
	if name == "" {
		name = "unnamed configuration"
	}
	return fmt.Sprintf("%s has %d action(s).", name, n)
}

func (s *Service) extract(name string, timeID int, settings *models.LogSettings, cfg *models.Configuration) (map[int]*models.Action, error) {
	actions := make(map[int]*models.Action)

	for _, action := range cfg.AllActions() {
		if action.TimeID != timeID {
			continue
		}

		if _, exists := actions[action.Order]; exists {
			err := &DuplicateOrderError{Configuration: name, TimeID: timeID, Order: action.Order}
			logging.Error(logging.StartAndStop, settings).
				Str("configuration", name).
				Int("time_id", timeID).
				Int("order", action.Order).
				Str("kind", string(action.Kind)).
				Msg(err.Error())
			return nil, err
		}

		extracted := *action
		extracted.LogSettings = models.EffectiveLogSettings(action, settings)
		actions[action.Order] = &extracted

		if err := s.ensureHandler(name, &extracted); err != nil {
			logging.Error(logging.StartAndStop, settings).
				Str("configuration", name).
				Int("time_id", timeID).
				Int("order", action.Order).
				Str("kind", string(action.Kind)).
				Msg(err.Error())
			return nil, err
		}
	}

	return actions, nil
}

// ensureHandler caches a handler for the action's kind if none is cached yet.
// Only called while the instance is extracting.
func (s *Service) ensureHandler(name string, action *models.Action) error {
	s.mu.Lock()
	_, cached := s.handlers[action.Kind]
	s.mu.Unlock()
	if cached {
		return nil
	}

	handler, err := s.registry.HandlerFor(action.Kind)
	if err != nil {
		return &UnknownActionKindError{
			Kind:          action.Kind,
			Configuration: name,
			TimeID:        action.TimeID,
			Order:         action.Order,
		}
	}

	s.mu.Lock()
	s.handlers[action.Kind] = handler
	s.mu.Unlock()
	return nil
}
