package core

import (
	"context"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
	"github.com/stretchr/testify/mock"
)

// MockCruxRunner is a mock implementation of CruxRunner for testing.
type MockCruxRunner struct {
	mock.Mock
}

var _ contract.CruxRunner = &MockCruxRunner{} // Compile-time check

// Results implements the CruxRunner interface.
func (m *MockCruxRunner) Results(ctx context.Context, req schema.CruxRequest) ([]schema.URLResult, error) {
	args := m.Called(ctx, req)
	results, _ := args.Get(0).([]schema.URLResult)
	return results, args.Error(1)
}

// Summary implements the CruxRunner interface.
func (m *MockCruxRunner) Summary(ctx context.Context, req schema.CruxRequest) (schema.SummaryReport, []schema.URLResult, error) {
	args := m.Called(ctx, req)
	report, _ := args.Get(0).(schema.SummaryReport)
	results, _ := args.Get(1).([]schema.URLResult)
	return report, results, args.Error(2)
}
