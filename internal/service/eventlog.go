package service

import (
	"context"
	"strings"

	"aquaponics_monitor/internal/models"
	"aquaponics_monitor/internal/repository"
)

const maxLogLimit = 1000

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (repository.EventFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)
	if !validRange(from, to) {
		return repository.EventFilter{}, ErrInvalidTimeRange
	}

	limit := f.Limit
	if limit < 0 {
		limit = 0
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}
	return repository.EventFilter{From: from, To: to, Type: normalizeEventType(f.Type), Limit: limit}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.DeviceEvent, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, rf)
}
