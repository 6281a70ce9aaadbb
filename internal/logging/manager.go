package logging

import (
	"fmt"
	"os"
	"sort"
	"sync"
)

// Component — подсистема, пишущая в отдельный лог-файл
type Component string

const (
	ComponentGame    Component = "game"
	ComponentWorld   Component = "world"
	ComponentCombat  Component = "combat"
	ComponentStorage Component = "storage"
	ComponentAPI     Component = "api"
)

// LoggerManager хранит логгеры компонентов. Уровни, заданные через
// SetAllLevels, применяются и к логгерам, созданным позже.
type LoggerManager struct {
	mu      sync.RWMutex
	loggers map[Component]*Logger

	hasLevels bool
	console   LogLevel
	file      LogLevel
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[Component]*Logger)}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, создавая его при первом запросе.
// Пока файловый вывод не включён (InitDefaultLogger), логгер пишет только в stderr.
func (lm *LoggerManager) GetLogger(c Component) (*Logger, error) {
	lm.mu.RLock()
	logger, ok := lm.loggers[c]
	lm.mu.RUnlock()
	if ok {
		return logger, nil
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	if logger, ok := lm.loggers[c]; ok {
		return logger, nil
	}

	if fileOutput {
		var err error
		if logger, err = NewLogger(string(c)); err != nil {
			return nil, fmt.Errorf("failed to create logger for %s: %w", c, err)
		}
	} else {
		logger = NewConsoleLogger(string(c), os.Stderr)
	}
	if lm.hasLevels {
		logger.SetLevels(lm.console, lm.file)
	}

	lm.loggers[c] = logger
	return logger, nil
}

// MustGetLogger возвращает логгер или консольный fallback при ошибке файла
func (lm *LoggerManager) MustGetLogger(c Component) *Logger {
	logger, err := lm.GetLogger(c)
	if err != nil {
		return NewConsoleLogger(string(c), os.Stderr)
	}
	return logger
}

// SetLevels меняет уровни одного уже созданного компонента
func (lm *LoggerManager) SetLevels(c Component, console, file LogLevel) error {
	lm.mu.RLock()
	logger, ok := lm.loggers[c]
	lm.mu.RUnlock()
	if !ok {
		return fmt.Errorf("logger for component %s not found", c)
	}
	logger.SetLevels(console, file)
	return nil
}

// SetAllLevels задаёт уровни всем компонентам, включая будущие
func (lm *LoggerManager) SetAllLevels(console, file LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.hasLevels = true
	lm.console, lm.file = console, file
	for _, logger := range lm.loggers {
		logger.SetLevels(console, file)
	}
}

// Components возвращает отсортированный список созданных логгеров
func (lm *LoggerManager) Components() []Component {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	out := make([]Component, 0, len(lm.loggers))
	for c := range lm.loggers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CloseAll закрывает все логгеры; следующий запрос создаст их заново
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var lastErr error
	for c, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close logger for %s: %w", c, err)
		}
	}
	lm.loggers = make(map[Component]*Logger)
	return lastErr
}

func GetGameLogger() *Logger    { return GetLoggerManager().MustGetLogger(ComponentGame) }
func GetWorldLogger() *Logger   { return GetLoggerManager().MustGetLogger(ComponentWorld) }
func GetCombatLogger() *Logger  { return GetLoggerManager().MustGetLogger(ComponentCombat) }
func GetStorageLogger() *Logger { return GetLoggerManager().MustGetLogger(ComponentStorage) }
func GetAPILogger() *Logger     { return GetLoggerManager().MustGetLogger(ComponentAPI) }
