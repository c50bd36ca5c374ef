package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"
	"tudu/pkg/apperrors"

	"go.uber.org/zap"
)

// defaultDueHour is the local time a due date gets when only a day is known.
const defaultDueHour = 9

const todoSystemPrompt = `You are an expert at understanding natural language task descriptions and extracting structured information.
Reply with a single JSON object and nothing else.`

var (
	highPriorityPattern = regexp.MustCompile(`(?i)\b(urgent|asap|important|critical|emergency)\b`)
	anyPriorityPattern  = regexp.MustCompile(`(?i)\b(urgent|asap|important|critical|emergency|soon|this week|need to|someday|maybe|when possible|low priority|high priority|priority)\b`)
	temporalPattern     = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|yesterday|now|morning|afternoon|evening|noon|midnight|weekend|week|month|year|daily|weekly|monthly|yearly|annually|every|next|this|in \d+|by|before|until|at \d|\d{1,2}(:\d{2})?\s*(am|pm)|\d{1,2}:\d{2}|monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tue|wed|thu|fri|sat|sun|jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|jun(e)?|jul(y)?|aug(ust)?|sep(tember)?|oct(ober)?|nov(ember)?|dec(ember)?|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2})\b`)
)

// GigaChatTodoParser implements TodoParser on top of a text model. The
// model's reply is never trusted as is: every field is checked and
// normalized before it is returned.
type GigaChatTodoParser struct {
	llm    Completer
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewTodoParser(llm Completer, loc *time.Location, logger *zap.Logger) *GigaChatTodoParser {
	return &GigaChatTodoParser{
		llm:    llm,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

type rawChecklistItem struct {
	Title string
}

// UnmarshalJSON accepts either "text" or {"title": "text"}.
func (i *rawChecklistItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		i.Title = s
		return nil
	}
	var obj struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	i.Title = obj.Title
	return nil
}

type rawTodoParsed struct {
	Title             string             `json:"title"`
	Description       *string            `json:"description"`
	DueDate           *string            `json:"dueDate"`
	Priority          *string            `json:"priority"`
	Category          *string            `json:"category"`
	Tags              []string           `json:"tags"`
	IsRecurring       bool               `json:"isRecurring"`
	RecurrencePattern *string            `json:"recurrencePattern"`
	ChecklistItems    []rawChecklistItem `json:"checklistItems"`
	Confidence        looseNumber        `json:"confidence"`
}

func (p *GigaChatTodoParser) ParseTodo(ctx context.Context, text string) (*dto.TodoParsed, error) {
	reply, err := p.llm.Complete(ctx, todoSystemPrompt, p.buildPrompt(text))
	if err != nil {
		return nil, apperrors.ExtractionFailed("Failed to parse todo. Please try again.", err)
	}

	var raw rawTodoParsed
	if err := decodeModelJSON(reply, &raw); err != nil {
		p.logger.Warn("Unusable todo parse reply", zap.Error(err), zap.String("reply", reply))
		return nil, apperrors.ExtractionFailed("Failed to parse todo. Please try again.", err)
	}

	parsed, err := p.normalize(text, &raw)
	if err != nil {
		p.logger.Warn("Todo parse reply failed validation", zap.Error(err))
		return nil, apperrors.ExtractionFailed("Failed to parse todo. Please try again.", err)
	}
	return parsed, nil
}

// normalize validates the model output and applies the keyword guards:
// text without urgency words has no priority and text without any time
// expression has no due date.
func (p *GigaChatTodoParser) normalize(input string, raw *rawTodoParsed) (*dto.TodoParsed, error) {
	out := &dto.TodoParsed{
		Priority:       models.PriorityNone,
		Tags:           []string{},
		ChecklistItems: []dto.ParsedChecklistItem{},
		IsRecurring:    raw.IsRecurring,
	}

	title := trimmed(&raw.Title)
	if title == nil {
		return nil, fmt.Errorf("title is empty")
	}
	out.Title = *title
	out.Description = trimmed(raw.Description)

	if d := trimmed(raw.DueDate); d != nil {
		due, err := parseModelTime(*d, p.loc, defaultDueHour)
		if err != nil {
			return nil, fmt.Errorf("dueDate: %w", err)
		}
		due = due.In(p.loc)
		out.DueDate = &due
	}

	if pr := trimmed(raw.Priority); pr != nil {
		priority := models.TodoPriority(strings.ToLower(*pr))
		if !priority.IsValid() {
			return nil, fmt.Errorf("priority %q is not allowed", *pr)
		}
		out.Priority = priority
	}

	if c := trimmed(raw.Category); c != nil {
		category := models.TodoCategory(strings.ToLower(*c))
		if !category.IsValid() {
			return nil, fmt.Errorf("category %q is not allowed", *c)
		}
		out.Category = &category
	}

	seen := make(map[string]bool, len(raw.Tags))
	for _, tag := range raw.Tags {
		tag = strings.TrimSpace(sanitizeUTF8(tag))
		if tag == "" || seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		out.Tags = append(out.Tags, tag)
	}

	if out.IsRecurring {
		out.RecurrencePattern = trimmed(raw.RecurrencePattern)
	}

	for _, item := range raw.ChecklistItems {
		if t := trimmed(&item.Title); t != nil {
			out.ChecklistItems = append(out.ChecklistItems, dto.ParsedChecklistItem{
				Title: *t,
				Order: len(out.ChecklistItems),
			})
		}
	}

	if err := validConfidence(raw.Confidence.Value); err != nil {
		return nil, err
	}
	out.Confidence = raw.Confidence.Value

	switch {
	case highPriorityPattern.MatchString(input):
		out.Priority = models.PriorityHigh
	case !anyPriorityPattern.MatchString(input):
		out.Priority = models.PriorityNone
	}
	if !temporalPattern.MatchString(input) {
		out.DueDate = nil
	}

	return out, nil
}

func (p *GigaChatTodoParser) buildPrompt(text string) string {
	now := p.now().In(p.loc)
	offset := now.Format("-07:00")

	return fmt.Sprintf(`The user's timezone is UTC%[1]s. Interpret every date and time in that zone.
Current datetime for reference: %[2]s (%[3]s).

Extract from the task input:
1. title: the main action, short and clear.
2. description: extra context or notes, or null.
3. dueDate: ISO 8601 datetime with the %[1]s offset, or null when no date or time is mentioned.
   "tomorrow" is the next day at 09:00, "tonight" is today at 20:00, "this weekend" is the coming Saturday at 10:00,
   "next Monday" is the coming Monday at 09:00, "in 3 days" is three days from now at 09:00.
   When only a day is known use 09:00.
4. priority: "high" for urgent, asap, important, critical or emergency; "medium" for soon, this week or need to;
   "low" for someday, maybe or when possible; otherwise "none".
5. category: one of %[4]s, or null.
6. tags: short keywords from the text, possibly empty.
7. isRecurring: true for phrases like daily, every week, each Monday, monthly or yearly.
8. recurrencePattern: the recurrence in plain words when isRecurring, otherwise null.
9. checklistItems: when the task lists several steps, one {"title"} per step in the order given, otherwise [].
10. confidence: your confidence in this parse from 0 to 100.

Reply with exactly this JSON shape:
{"title": "", "description": null, "dueDate": null, "priority": "none", "category": null, "tags": [],
 "isRecurring": false, "recurrencePattern": null, "checklistItems": [{"title": ""}], "confidence": 0}

Task input: %[5]q`,
		offset,
		now.Format(time.RFC3339),
		now.Weekday(),
		categoryList(),
		text,
	)
}

func categoryList() string {
	names := make([]string, len(models.TodoCategories))
	for i, c := range models.TodoCategories {
		names[i] = `"` + string(c) + `"`
	}
	return strings.Join(names, ", ")
}
