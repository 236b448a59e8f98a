package api

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"ips-guard/internal/model"

	"github.com/sirupsen/logrus"
)

// StoredAlert is an alert kept for the operator API.
type StoredAlert struct {
	ID string `json:"id"`
	model.Alert
}

type AlertFilter struct {
	Severity string
	SID      uint32
	Search   string
}

func (f AlertFilter) match(a *StoredAlert) bool {
	if f.Severity != "" && !strings.EqualFold(a.Severity, f.Severity) {
		return false
	}
	if f.SID != 0 && a.SID != f.SID {
		return false
	}
	if f.Search != "" && !strings.Contains(a.Message, f.Search) {
		return false
	}
	return true
}

type AlertSubscriber struct {
	Channel chan StoredAlert
	Filter  AlertFilter
}

// Storage keeps the most recent alerts in memory and fans new ones out to
// websocket subscribers. It is fed from the engine's alert channel.
type Storage struct {
	mu        sync.RWMutex
	alerts    []StoredAlert
	maxAlerts int
	nextID    uint64
	logger    *logrus.Logger

	subsMu sync.RWMutex
	subs   map[*AlertSubscriber]struct{}
}

func NewStorage(maxAlerts int, logger *logrus.Logger) *Storage {
	if maxAlerts <= 0 {
		maxAlerts = 10000
	}
	return &Storage{
		alerts:    make([]StoredAlert, 0),
		maxAlerts: maxAlerts,
		logger:    logger,
		subs:      make(map[*AlertSubscriber]struct{}),
	}
}

// Consume stores every alert received on alerts until ctx is cancelled or
// the channel is closed.
func (s *Storage) Consume(ctx context.Context, alerts <-chan model.Alert) error {
	for {
		select {
		case a, ok := <-alerts:
			if !ok {
				return nil
			}
			s.AddAlert(a)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Storage) AddAlert(a model.Alert) StoredAlert {
	s.mu.Lock()
	s.nextID++
	stored := StoredAlert{ID: strconv.FormatUint(s.nextID, 10), Alert: a}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	s.alerts = append(s.alerts, stored)
	if len(s.alerts) > s.maxAlerts {
		s.alerts = s.alerts[len(s.alerts)-s.maxAlerts:]
	}
	s.mu.Unlock()

	s.notifySubscribers(stored)
	return stored
}

// GetAlerts returns up to limit alerts matching f, newest first.
func (s *Storage) GetAlerts(limit int, f AlertFilter) []StoredAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StoredAlert, 0)
	for i := len(s.alerts) - 1; i >= 0 && len(result) < limit; i-- {
		if f.match(&s.alerts[i]) {
			result = append(result, s.alerts[i])
		}
	}
	return result
}

func (s *Storage) GetAlertByID(id string) *StoredAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.alerts {
		if s.alerts[i].ID == id {
			a := s.alerts[i]
			return &a
		}
	}
	return nil
}

func (s *Storage) SubscribeAlerts(sub *AlertSubscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs[sub] = struct{}{}
}

func (s *Storage) UnsubscribeAlerts(sub *AlertSubscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.Channel)
	}
}

func (s *Storage) notifySubscribers(a StoredAlert) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	for sub := range s.subs {
		if !sub.Filter.match(&a) {
			continue
		}
		select {
		case sub.Channel <- a:
		default:
			s.logger.Debug("Alert subscriber is slow, dropping alert")
		}
	}
}
