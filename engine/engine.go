package engine

import (
	"paneltrack/config"
	"paneltrack/livecount"
	"paneltrack/store"
	"paneltrack/tasks"
	"paneltrack/tracker"
)

// LogFunc is the logging callback signature.
type LogFunc func(format string, args ...interface{})

// Engine owns the production state machine and orchestrates the
// subscribers hanging off its EventBus: metrics, the live stage-count
// cache and the outbox reports.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	logFn      LogFunc

	trackerMgr *tracker.Manager
	taskSvc    *tasks.Service
	counts     *livecount.Cache

	Events *EventBus
}

// Config holds the parameters needed to create an Engine.
type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Counts     *livecount.Cache // nil when Redis is disabled
	LogFunc    LogFunc
}

// New creates a new Engine. Call Start() to wire subsystems.
func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = func(string, ...interface{}) {}
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		counts:     c.Counts,
		logFn:      logFn,
		Events:     NewEventBus(),
	}
}

// Start creates the managers and wires the event chain.
func (e *Engine) Start() {
	emitter := &trackerEmitter{bus: e.Events}
	e.trackerMgr = tracker.NewManager(e.db, emitter)
	e.taskSvc = tasks.NewService(e.db)

	e.wireEventHandlers()

	e.logFn("engine started: factory=%s station=%s", e.cfg.Factory, e.cfg.StationID)
}

// Stop shuts the engine down. The bus is synchronous, so there is
// nothing in flight once callers have stopped issuing operations.
func (e *Engine) Stop() {
	e.logFn("engine stopped")
}

// DB returns the database handle.
func (e *Engine) DB() *store.DB { return e.db }

// AppConfig returns the app config.
func (e *Engine) AppConfig() *config.Config { return e.cfg }

// ConfigPath returns the config file path.
func (e *Engine) ConfigPath() string { return e.configPath }

// Tracker returns the production state machine.
func (e *Engine) Tracker() *tracker.Manager { return e.trackerMgr }

// Tasks returns the task query service.
func (e *Engine) Tasks() *tasks.Service { return e.taskSvc }

// Counts returns the live stage-count cache, or nil when disabled.
func (e *Engine) Counts() *livecount.Cache { return e.counts }
