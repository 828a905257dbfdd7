package scheduler

import "time"

// Metrics is a thread-safe read-only view of the loop's runtime signals.
// It is updated from the loop goroutine and read from HTTP handlers/tests.
type Metrics struct {
	Tick        uint64  `json:"tick"`
	Generation  uint64  `json:"generation"`
	Money       string  `json:"money"`
	MoneyMant   float64 `json:"money_mantissa"`
	MoneyExp    int     `json:"money_exponent"`
	TotalLevels int     `json:"total_levels"`
	LifeLessons int     `json:"life_lessons"`
	Automated   int     `json:"automated_pastries"`

	Subscribers int `json:"subscribers"`
	InboxDepth  int `json:"inbox_depth"`

	CommandsTotal        uint64 `json:"commands_total"`
	CommandErrorsTotal   uint64 `json:"command_errors_total"`
	BuildsCompletedTotal uint64 `json:"builds_completed_total"`

	StepMS float64 `json:"step_ms"`
}

func (l *Loop) Metrics() Metrics {
	if l == nil {
		return Metrics{}
	}
	m, _ := l.metrics.Load().(Metrics)
	return m
}

func (l *Loop) publishMetrics(step time.Duration) {
	money := l.eng.Money()
	l.metrics.Store(Metrics{
		Tick:                 l.eng.CurrentTick(),
		Generation:           l.eng.Generation(),
		Money:                money.String(),
		MoneyMant:            money.Mantissa,
		MoneyExp:             money.Exponent,
		TotalLevels:          l.eng.TotalLevels(),
		LifeLessons:          l.eng.LifeLessons(),
		Automated:            l.eng.AutomatedCount(),
		Subscribers:          l.subscriberCount(),
		InboxDepth:           len(l.inbox),
		CommandsTotal:        l.commandsTotal.Load(),
		CommandErrorsTotal:   l.commandErrors.Load(),
		BuildsCompletedTotal: l.buildsTotal.Load(),
		StepMS:               float64(step.Microseconds()) / 1000,
	})
}
