package harness

// StepTrace is one executed step in a run trace.
type StepTrace struct {
	Seq    int    `json:"seq"`
	Op     string `json:"op"`
	Page   string `json:"page,omitempty"`
	Detail string `json:"detail,omitempty"`
	Expect int    `json:"expect,omitempty"`
	Status string `json:"status"`
}

// Step statuses.
const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

// Result is the outcome of one scenario execution. Failures holds the
// assertion diagnostics of the checkpoint that stopped the run; setup
// and execution errors are returned as errors instead, never recorded
// here.
type Result struct {
	Scenario  string      `json:"scenario"`
	RunToken  string      `json:"run_token"`
	Pass      bool        `json:"pass"`
	Steps     []StepTrace `json:"steps"`
	Failures  []string    `json:"failures,omitempty"`
	AuditRows int         `json:"audit_rows"`
}
