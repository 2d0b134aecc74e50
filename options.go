package praetor

import (
	"log/slog"

	"github.com/praetorhq/praetor/auditlog"
	"github.com/praetorhq/praetor/plugin"
	"github.com/praetorhq/praetor/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithEvaluator sets the policy statement evaluator.
func WithEvaluator(ev Evaluator) Option { return func(e *Engine) { e.evaluator = ev } }

// WithCache sets the decision cache.
func WithCache(c DecisionCache) Option { return func(e *Engine) { e.cache = c } }

// WithAuditSink sets the audit event sink.
func WithAuditSink(s auditlog.Sink) Option { return func(e *Engine) { e.sink = s } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
