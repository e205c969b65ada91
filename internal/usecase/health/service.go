package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the counter store is down; requests are still served.
	Degraded Status = "degraded"
	// Unhealthy indicates the completion provider is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckCounterStore = "counter_store"
	CheckLLM          = "llm"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Serving reports whether the service can still answer boost requests.
// A missing counter store only degrades quota enforcement.
func (r Report) Serving() bool {
	return r.Status != Unhealthy
}

// Service coordinates health checks.
type Service struct {
	store StorePinger
	llm   LLMChecker
}

// New creates a Service. llm can be nil.
func New(store StorePinger, llm LLMChecker) *Service {
	return &Service{store: store, llm: llm}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks[CheckCounterStore] = CheckError
		status = Degraded
	} else {
		checks[CheckCounterStore] = CheckOK
	}

	if s.llm != nil {
		if err := s.llm.HealthCheck(ctx); err != nil {
			checks[CheckLLM] = CheckError
			status = Unhealthy
		} else {
			checks[CheckLLM] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
