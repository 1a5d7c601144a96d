// pkg/store/memory.go
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"LevelRadar/pkg/model"
)

// MemoryStore 内存版预警存储，用于开发模式和测试
type MemoryStore struct {
	alerts map[string]*model.Alert
	mutex  sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts: make(map[string]*model.Alert),
	}
}

func (s *MemoryStore) Create(alert *model.Alert) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if alert.UUID == "" {
		alert.UUID = uuid.New().String()
	}
	now := time.Now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now

	cp := *alert
	s.alerts[alert.UUID] = &cp
	return nil
}

func (s *MemoryStore) GetByUUID(id string) (*model.Alert, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	alert, exists := s.alerts[id]
	if !exists {
		return nil, ErrAlertNotFound
	}
	cp := *alert
	return &cp, nil
}

func (s *MemoryStore) List(filter Filter) ([]*model.Alert, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []*model.Alert
	for _, alert := range s.alerts {
		if filter.Status != "" && alert.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && alert.UserID != filter.UserID {
			continue
		}
		if filter.Instrument != "" && alert.Instrument() != filter.Instrument {
			continue
		}
		if filter.TriggeredOnly && alert.AlertCount < 1 {
			continue
		}
		cp := *alert
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MemoryStore) ListEligible() ([]*model.Alert, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []*model.Alert
	for _, alert := range s.alerts {
		if alert.Status != model.StatusEnabled || alert.AlertCount != 0 {
			continue
		}
		cp := *alert
		result = append(result, &cp)
	}
	return result, nil
}

func (s *MemoryStore) ListTriggeredSince(since time.Time, limit int) ([]*model.Alert, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []*model.Alert
	for _, alert := range s.alerts {
		if alert.AlertCount < 1 || alert.LastTriggeredAt == nil {
			continue
		}
		if !since.IsZero() && !alert.LastTriggeredAt.After(since) {
			continue
		}
		cp := *alert
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LastTriggeredAt.After(*result[j].LastTriggeredAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) MarkTriggered(id string, price float64, at time.Time) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	alert, exists := s.alerts[id]
	if !exists {
		return false, ErrAlertNotFound
	}

	// 与数据库实现一致的条件更新语义
	if alert.Status != model.StatusEnabled || alert.AlertCount != 0 {
		return false, nil
	}

	triggeredAt := at
	triggeredPrice := price
	alert.Status = model.StatusTriggered
	alert.AlertCount = 1
	alert.LastTriggeredAt = &triggeredAt
	alert.LastTriggeredPrice = &triggeredPrice
	alert.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) Disable(id string, reason string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	alert, exists := s.alerts[id]
	if !exists {
		return ErrAlertNotFound
	}
	alert.Status = model.StatusDisabled
	alert.DisabledReason = reason
	alert.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Reenable(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	alert, exists := s.alerts[id]
	if !exists {
		return ErrAlertNotFound
	}
	alert.Status = model.StatusEnabled
	alert.AlertCount = 0
	alert.DisabledReason = ""
	alert.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.alerts[id]; !exists {
		return ErrAlertNotFound
	}
	delete(s.alerts, id)
	return nil
}
