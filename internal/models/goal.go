package models

import (
	"time"

	"github.com/google/uuid"
)

// GoalStatus represents the lifecycle state of a goal
type GoalStatus string

const (
	GoalStatusPlanning  GoalStatus = "planning"
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusAbandoned GoalStatus = "abandoned"
	GoalStatusOnHold    GoalStatus = "on_hold"
)

// GoalType categorizes a goal by life area
type GoalType string

const (
	GoalTypePersonal     GoalType = "personal"
	GoalTypeProfessional GoalType = "professional"
	GoalTypeHealth       GoalType = "health"
	GoalTypeFinancial    GoalType = "financial"
	GoalTypeEducational  GoalType = "educational"
	GoalTypeProject      GoalType = "project"
	GoalTypeOther        GoalType = "other"
)

// Milestone is an AI-suggested milestone within a goal breakdown
type Milestone struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	TargetDate     *time.Time `json:"target_date,omitempty"`
	EstimatedHours float64    `json:"estimated_hours"`
}

// SuccessMetric is an AI-suggested way to measure goal completion
type SuccessMetric struct {
	Metric            string `json:"metric"`
	TargetValue       string `json:"target_value"`
	MeasurementMethod string `json:"measurement_method"`
}

// Obstacle is an AI-identified risk with a mitigation strategy
type Obstacle struct {
	Obstacle           string `json:"obstacle"`
	Likelihood         string `json:"likelihood"`
	MitigationStrategy string `json:"mitigation_strategy"`
}

// GoalBreakdown holds the AI-generated decomposition of a goal. It is
// persisted as JSONB columns on the goal row and replaced wholesale on
// each regeneration.
type GoalBreakdown struct {
	Milestones          []Milestone     `json:"milestones"`
	SuccessMetrics      []SuccessMetric `json:"success_metrics"`
	EstimatedTotalHours float64         `json:"estimated_total_hours"`
	PotentialObstacles  []Obstacle      `json:"potential_obstacles"`
	RecommendedTasks    []string        `json:"recommended_tasks,omitempty"`
}

// Goal represents a SMART goal
type Goal struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`

	// SMART components
	Specific   *string    `json:"specific,omitempty"`
	Measurable *string    `json:"measurable,omitempty"`
	Achievable *string    `json:"achievable,omitempty"`
	Relevant   *string    `json:"relevant,omitempty"`
	TimeBound  *time.Time `json:"time_bound,omitempty"`

	Status   GoalStatus `json:"status"`
	GoalType GoalType   `json:"goal_type"`
	Progress float64    `json:"progress"` // 0.0 to 1.0
	Position int        `json:"position"`

	// AI-generated breakdown (nil until generated)
	Breakdown            *GoalBreakdown `json:"breakdown,omitempty"`
	BreakdownGeneratedAt *time.Time     `json:"breakdown_generated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GoalStatistics summarizes a user's goals
type GoalStatistics struct {
	TotalGoals      int                `json:"total_goals"`
	ActiveGoals     int                `json:"active_goals"`
	CompletedGoals  int                `json:"completed_goals"`
	PlanningGoals   int                `json:"planning_goals"`
	AbandonedGoals  int                `json:"abandoned_goals"`
	OnHoldGoals     int                `json:"on_hold_goals"`
	AverageProgress float64            `json:"average_progress"`
	GoalsByType     map[GoalType]int   `json:"goals_by_type"`
	OverdueGoals    int                `json:"overdue_goals"`
}
