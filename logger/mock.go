package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger records log calls as testify mock calls so tests can assert
// which protocol events were reported and at which level. Expectations are
// keyed by method name ("Debug", "Warn", ...) and message.
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

// NewMockLogger returns a MockLogger with no expectations.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Quiet accepts any number of calls at the given levels, so a test only
// sets expectations for the lines it checks. With no levels it covers
// Debug and Info.
func (m *MockLogger) Quiet(levels ...string) *MockLogger {
	if len(levels) == 0 {
		levels = []string{"Debug", "Info"}
	}
	for _, lvl := range levels {
		m.On(lvl, mock.Anything, mock.Anything).Maybe()
	}

	return m
}

// Logged reports whether msg was logged at level ("Debug", "Warn", ...).
// Call it once the code under test has stopped logging.
func (m *MockLogger) Logged(level, msg string) bool {
	for _, call := range m.Calls {
		if call.Method != level || len(call.Arguments) == 0 {
			continue
		}
		if s, ok := call.Arguments.Get(0).(string); ok && s == msg {
			return true
		}
	}

	return false
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) Info(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) Warn(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) Error(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) { m.Called(msg, keysAndValues) }

func (m *MockLogger) SetLevel(level Level) { m.Called(level) }

func (m *MockLogger) Level() Level {
	args := m.Called()
	return args.Get(0).(Level) //nolint:forcetypeassert
}

// With returns m so expectations cover loggers derived per endpoint or
// per command.
func (m *MockLogger) With(_ ...any) Logger {
	return m
}
