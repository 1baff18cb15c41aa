package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/mkammes/taskpilot/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// MaxParseTitleLength bounds the fallback title taken from raw input
	MaxParseTitleLength = 50

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider implements the Provider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	now       func() time.Time
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		now:       time.Now,
		logger:    logger,
		debugMode: debugMode,
	}
}

// NewOpenAIProviderWithConfig creates a new OpenAI provider with custom configuration
func NewOpenAIProviderWithConfig(apiKey string, baseURL string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, baseURL, model, nil, false)
}

// ParseTask turns a natural-language description into a structured task
// draft. A malformed model response degrades to a draft built from the
// raw input rather than failing the request.
func (p *OpenAIProvider) ParseTask(ctx context.Context, description string, userContext *models.UserContext) (*ParsedTask, error) {
	prompt := buildParsePrompt(description, p.now(), userContext)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a task parsing assistant. Extract structured task fields from natural language. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}

	content, err := p.complete(ctx, "parse_task", messages, true, 0)
	if err != nil {
		return nil, err
	}

	parsed, err := parseTaskResponse(content, description, p.now())
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("parse_task_fallback",
				zap.Error(err),
				zap.String("request_id", ExtractRequestID(ctx)),
			)
		}
		return fallbackParsedTask(description), nil
	}

	return parsed, nil
}

// SuggestSubtasks proposes smaller steps for an existing task
func (p *OpenAIProvider) SuggestSubtasks(ctx context.Context, title, description string) ([]SubtaskSuggestion, error) {
	prompt := fmt.Sprintf(`Break the following task into 3-5 smaller subtasks.

Task: %q
Details: %q

Respond with a JSON object in this format:
{
  "subtasks": [
    {
      "title": "...",
      "description": "...",
      "estimated_hours": 1.5,
      "priority": "low" | "medium" | "high" | "urgent"
    }
  ]
}

Each subtask should be independently completable and ordered by the natural sequence of work. Return only valid JSON.`, title, description)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a task planning assistant that breaks work into small, actionable steps. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}

	content, err := p.complete(ctx, "suggest_subtasks", messages, true, 0)
	if err != nil {
		return nil, err
	}

	var response struct {
		Subtasks []SubtaskSuggestion `json:"subtasks"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &response); err != nil {
		return nil, fmt.Errorf("failed to parse subtask response: %w", err)
	}

	for i := range response.Subtasks {
		if !validPriority(response.Subtasks[i].Priority) {
			response.Subtasks[i].Priority = models.TaskPriorityMedium
		}
	}

	return response.Subtasks, nil
}

// BreakDownGoal decomposes a goal into milestones, metrics, and risks
func (p *OpenAIProvider) BreakDownGoal(ctx context.Context, goal *models.Goal, userContext *models.UserContext) (*models.GoalBreakdown, error) {
	prompt := buildBreakdownPrompt(goal, p.now(), userContext)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a goal planning assistant that produces realistic, measurable plans. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}

	content, err := p.complete(ctx, "break_down_goal", messages, true, 0)
	if err != nil {
		return nil, err
	}

	breakdown := &models.GoalBreakdown{}
	if err := json.Unmarshal([]byte(extractJSON(content)), breakdown); err != nil {
		return nil, fmt.Errorf("failed to parse breakdown response: %w", err)
	}
	if len(breakdown.Milestones) == 0 {
		return nil, fmt.Errorf("breakdown response has no milestones")
	}

	return breakdown, nil
}

// Chat handles a goal-planning conversation turn
func (p *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage, userContext *models.UserContext) (*ChatResponse, error) {
	systemContent := "You are a goal planning coach. Help the user refine vague ambitions into SMART goals through short, focused questions. Be concise."
	if block := formatUserContext(userContext); block != "" {
		systemContent += "\n\n" + block
	}

	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	openAIMessages = append(openAIMessages, openai.SystemMessage(systemContent))

	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Content))
		default:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Content))
		}
	}

	content, err := p.complete(ctx, "chat", openAIMessages, false, 0)
	if err != nil {
		return nil, err
	}

	return &ChatResponse{Message: content}, nil
}

// complete sends a chat completion request and returns the first
// choice's content, with debug logging on both sides of the call.
func (p *OpenAIProvider) complete(ctx context.Context, operation string, messages []openai.ChatCompletionMessageParamUnion, jsonResponse bool, maxTokens int64) (string, error) {
	requestID := ExtractRequestID(ctx)
	userIDStr := ExtractUserID(ctx)

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		// Temperature omitted - use model default to avoid "unsupported_value" errors
	}
	if jsonResponse {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if maxTokens > 0 {
		req.MaxTokens = openai.Int(maxTokens)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("message_count", len(messages)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", operation),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("user_id", userIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to %s: %w", operation, apiErr)
		}
		return "", fmt.Errorf("failed to %s: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("user_id", userIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// buildParsePrompt builds the prompt for natural-language task parsing
func buildParsePrompt(description string, now time.Time, userContext *models.UserContext) string {
	prompt := fmt.Sprintf(`Extract structured task fields from the following description.

Description: %q

Current date: %s

Respond with a JSON object in this format:
{
  "title": "concise task title",
  "description": "detailed description, or the input itself",
  "priority": "low" | "medium" | "high" | "urgent",
  "due_date": "YYYY-MM-DD or a relative expression like 'friday' or 'in 3 days', or null",
  "estimated_hours": 2.0,
  "tags": ["tag1", "tag2"]
}

Guidelines:
- Infer priority from urgency keywords (urgent, ASAP, important); default to "medium".
- Omit due_date and estimated_hours when the description gives no signal.
- Tags are short lowercase topic labels.

Return only valid JSON.`, description, now.Format("2006-01-02"))

	if block := formatUserContext(userContext); block != "" {
		prompt += "\n\n" + block
	}

	return prompt
}

// buildBreakdownPrompt builds the prompt for goal decomposition
func buildBreakdownPrompt(goal *models.Goal, now time.Time, userContext *models.UserContext) string {
	prompt := fmt.Sprintf("Create an actionable plan for the following goal.\n\nGoal: %q", goal.Title)
	if goal.Description != nil && *goal.Description != "" {
		prompt += fmt.Sprintf("\nDetails: %q", *goal.Description)
	}
	if goal.Specific != nil && *goal.Specific != "" {
		prompt += fmt.Sprintf("\nSpecific outcome: %q", *goal.Specific)
	}
	if goal.Measurable != nil && *goal.Measurable != "" {
		prompt += fmt.Sprintf("\nHow success is measured: %q", *goal.Measurable)
	}
	if goal.TimeBound != nil {
		prompt += fmt.Sprintf("\nDeadline: %s (%d days from now)",
			goal.TimeBound.Format("2006-01-02"),
			int(goal.TimeBound.Sub(now).Hours()/24))
	}
	prompt += fmt.Sprintf("\nGoal type: %s", goal.GoalType)

	prompt += `

Respond with a JSON object in this format:
{
  "milestones": [
    {"title": "...", "description": "...", "target_date": "2025-08-01T00:00:00Z", "estimated_hours": 10}
  ],
  "success_metrics": [
    {"metric": "...", "target_value": "...", "measurement_method": "..."}
  ],
  "estimated_total_hours": 40,
  "potential_obstacles": [
    {"obstacle": "...", "likelihood": "low" | "medium" | "high", "mitigation_strategy": "..."}
  ],
  "recommended_tasks": ["first concrete task", "second concrete task"]
}

Provide 3-5 milestones in chronological order, each with a realistic effort estimate. Milestone target dates must fall before the deadline when one is given. Return only valid JSON.`

	if block := formatUserContext(userContext); block != "" {
		prompt += "\n\n" + block
	}

	return prompt
}

// formatUserContext renders the user's stated situation as a prompt
// block, or an empty string when nothing is on file.
func formatUserContext(uc *models.UserContext) string {
	if uc == nil {
		return ""
	}

	var lines []string
	if uc.WorkDescription != nil && *uc.WorkDescription != "" {
		lines = append(lines, "Work: "+*uc.WorkDescription)
	}
	if len(uc.ShortTermFocus) > 0 {
		lines = append(lines, "Current focus: "+strings.Join(uc.ShortTermFocus, "; "))
	}
	if len(uc.LongTermGoals) > 0 {
		lines = append(lines, "Long-term goals: "+strings.Join(uc.LongTermGoals, "; "))
	}
	if len(uc.OtherContext) > 0 {
		lines = append(lines, "Other context: "+strings.Join(uc.OtherContext, "; "))
	}
	if len(lines) == 0 {
		return ""
	}

	return "About the user:\n" + strings.Join(lines, "\n")
}

// parseTaskResponse decodes and normalizes the model's parse output.
func parseTaskResponse(content, original string, now time.Time) (*ParsedTask, error) {
	var raw struct {
		Title          string   `json:"title"`
		Description    string   `json:"description"`
		Priority       string   `json:"priority"`
		DueDate        *string  `json:"due_date"`
		EstimatedHours *float64 `json:"estimated_hours"`
		Tags           []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse task response: %w", err)
	}

	parsed := &ParsedTask{
		Title:          raw.Title,
		Description:    raw.Description,
		Priority:       models.TaskPriority(strings.ToLower(raw.Priority)),
		EstimatedHours: raw.EstimatedHours,
		Tags:           raw.Tags,
	}

	if parsed.Title == "" {
		parsed.Title = TruncateString(original, MaxParseTitleLength)
	}
	if parsed.Description == "" {
		parsed.Description = original
	}
	if !validPriority(parsed.Priority) {
		parsed.Priority = models.TaskPriorityMedium
	}
	if parsed.Tags == nil {
		parsed.Tags = []string{}
	}
	if raw.DueDate != nil && *raw.DueDate != "" {
		if due, ok := resolveDueDate(*raw.DueDate, now); ok {
			parsed.DueDate = &due
		}
	}

	return parsed, nil
}

// fallbackParsedTask builds a minimal draft from the raw input when the
// model response cannot be used.
func fallbackParsedTask(description string) *ParsedTask {
	return &ParsedTask{
		Title:       TruncateString(description, MaxParseTitleLength),
		Description: description,
		Priority:    models.TaskPriorityMedium,
		Tags:        []string{},
	}
}

func validPriority(p models.TaskPriority) bool {
	switch p {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityUrgent:
		return true
	}
	return false
}

// extractJSON strips markdown fences and surrounding prose the model
// sometimes wraps around its JSON payload.
func extractJSON(content string) string {
	if idx := strings.Index(content, "```json"); idx != -1 {
		content = content[idx+len("```json"):]
		if end := strings.Index(content, "```"); end != -1 {
			content = content[:end]
		}
	} else if idx := strings.Index(content, "```"); idx != -1 {
		content = content[idx+len("```"):]
		if end := strings.Index(content, "```"); end != -1 {
			content = content[:end]
		}
	}

	content = strings.TrimSpace(content)
	if len(content) > 0 && content[0] != '{' && content[0] != '[' {
		start := strings.IndexAny(content, "{[")
		end := strings.LastIndexAny(content, "}]")
		if start != -1 && end > start {
			content = content[start : end+1]
		}
	}

	return content
}

var (
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	inDaysPattern  = regexp.MustCompile(`in (\d+) days?`)
)

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// resolveDueDate converts an absolute or relative date expression into a
// concrete date. A weekday name that matches today resolves to next week.
func resolveDueDate(expr string, now time.Time) (time.Time, bool) {
	expr = strings.TrimSpace(expr)

	if isoDatePattern.MatchString(expr) {
		due, err := time.Parse("2006-01-02", expr)
		if err != nil {
			return time.Time{}, false
		}
		return due, true
	}

	lower := strings.ToLower(expr)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case strings.Contains(lower, "today"):
		return today, true
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(lower, "next week"):
		return today.AddDate(0, 0, 7), true
	}

	for name, weekday := range weekdayNames {
		if strings.Contains(lower, name) {
			daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
			if daysAhead == 0 {
				daysAhead = 7
			}
			return today.AddDate(0, 0, daysAhead), true
		}
	}

	if match := inDaysPattern.FindStringSubmatch(lower); match != nil {
		var days int
		if _, err := fmt.Sscanf(match[1], "%d", &days); err == nil {
			return today.AddDate(0, 0, days), true
		}
	}

	return time.Time{}, false
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry) {
	registry.Register("openai", func(config map[string]string) (Provider, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		model := config["model"]
		baseURL := config["base_url"]

		return NewOpenAIProviderWithConfig(apiKey, baseURL, model), nil
	})
}
