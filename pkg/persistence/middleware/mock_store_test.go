package middleware_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aretw0/hfsm/pkg/domain"
	"github.com/aretw0/hfsm/pkg/ports"
)

// MockStore records calls so tests can assert what reached the wrapped store.
type MockStore struct {
	mock.Mock
}

func (s *MockStore) Save(ctx context.Context, machineID string, state domain.FSMState) error {
	return s.Called(ctx, machineID, state).Error(0)
}

func (s *MockStore) Load(ctx context.Context, machineID string) (domain.FSMState, error) {
	args := s.Called(ctx, machineID)
	state, _ := args.Get(0).(domain.FSMState)
	return state, args.Error(1)
}

func (s *MockStore) Delete(ctx context.Context, machineID string) error {
	return s.Called(ctx, machineID).Error(0)
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	args := s.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

var _ ports.StateStore = (*MockStore)(nil)
