// Package automation implements the Automation Scheduler (spec.md §4.5):
// persistent cron/immediate/webhook triggers bound to workflow definitions,
// with outcome counters and a background tick loop, grounded on
// stherrien-gorax's internal/schedule package.
package automation

import "time"

// TriggerKind discriminates an automation's trigger configuration.
type TriggerKind string

const (
	TriggerCron      TriggerKind = "cron"
	TriggerImmediate TriggerKind = "immediate"
	TriggerWebhook   TriggerKind = "webhook"
)

// Trigger is the discriminated trigger configuration named in spec §3
// ("trigger (discriminated: cron / immediate / webhook with associated
// payload schema)").
type Trigger struct {
	Kind           TriggerKind            `json:"kind"`
	CronExpression string                 `json:"cronExpression,omitempty"`
	Timezone       string                 `json:"timezone,omitempty"`
	PayloadSchema  map[string]interface{} `json:"payloadSchema,omitempty"`
}

// Automation is the persistent record from spec §3: identifier, owning
// tenant, name, trigger, workflow reference, enabled flag, counters, and
// run timestamps/errors.
type Automation struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenantId"`
	Name       string    `db:"name" json:"name"`
	Trigger    Trigger   `db:"trigger" json:"trigger"`
	WorkflowID string    `db:"workflow_id" json:"workflowId"`
	Enabled    bool      `db:"enabled" json:"enabled"`

	RunCount     int64 `db:"run_count" json:"runCount"`
	SuccessCount int64 `db:"success_count" json:"successCount"`
	FailureCount int64 `db:"failure_count" json:"failureCount"`

	LastRunAt  *time.Time `db:"last_run_at" json:"lastRunAt,omitempty"`
	NextRunAt  *time.Time `db:"next_run_at" json:"nextRunAt,omitempty"`
	LastError  string     `db:"last_error" json:"lastError,omitempty"`
	LastErrorAt *time.Time `db:"last_error_at" json:"lastErrorAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// ExecutionStatus is the state machine named in spec §4.5:
// pending → running → (completed | failed).
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Execution is the automation execution record from spec §3.
type Execution struct {
	ID           string                 `db:"id" json:"id"`
	AutomationID string                 `db:"automation_id" json:"automationId"`
	Status       ExecutionStatus        `db:"status" json:"status"`
	TriggerData  map[string]interface{} `db:"trigger_data" json:"triggerData,omitempty"`
	Result       map[string]interface{} `db:"result" json:"result,omitempty"`
	Error        string                 `db:"error" json:"error,omitempty"`

	StartedAt   time.Time  `db:"started_at" json:"startedAt"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	Duration    time.Duration `db:"duration" json:"duration,omitempty"`
}
