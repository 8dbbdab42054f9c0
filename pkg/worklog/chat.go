package worklog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/opshelm/worklog/pkg/database"
	"github.com/opshelm/worklog/pkg/eventstream"
)

// validateAgent checks an agent name against the configured set.
func (s *Service) validateAgent(name string) (string, error) {
	agent := strings.ToLower(strings.TrimSpace(name))
	if !slices.Contains(s.agents, agent) {
		return "", ValidationError{
			Reason: fmt.Sprintf("Invalid agent '%s'. Must be one of: %s", name, strings.Join(s.agents, ", ")),
		}
	}

	return agent, nil
}

// SendMessageParams are the arguments for SendMessage.
type SendMessageParams struct {
	FromAgent string
	ToAgent   string
	Message   string
	Context   string
	Priority  string
}

// SendMessage posts a message from one agent to another, or to 'all' as a
// broadcast. New messages start in the pending status.
func (s *Service) SendMessage(ctx context.Context, p SendMessageParams) (*StoreResult, error) {
	if strings.TrimSpace(p.Message) == "" {
		return nil, ValidationError{Reason: "message is required"}
	}

	from := p.FromAgent
	if from == "" {
		from = s.agentName
	}
	from, err := s.validateAgent(from)
	if err != nil {
		return nil, err
	}

	to, err := s.validateAgent(p.ToAgent)
	if err != nil {
		return nil, err
	}

	priority := p.Priority
	if priority == "" {
		priority = "normal"
	}
	priority, err = validateEnum(priority, "priority", ChatPriorities)
	if err != nil {
		return nil, err
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	sql := insertSQL(b, "agent_chat", "from_agent", "to_agent", "message", "context", "priority")

	id, err := s.insertReturningID(ctx, b, sql, from, to, p.Message, p.Context, priority)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventstream.EventTypeChatSent, "agent_chat", id, "")

	return &StoreResult{ID: id}, nil
}

// MessagesResult is a page of chat messages for one agent.
type MessagesResult struct {
	Agent    string         `json:"agent"`
	Messages []database.Row `json:"messages"`
	Count    int            `json:"count"`
}

// GetMessages returns messages addressed to an agent, directly or via the
// 'all' broadcast, newest first. Fetched pending messages from other senders
// transition to read; a sender reading back its own message does not.
func (s *Service) GetMessages(ctx context.Context, agent, status string, limit int) (*MessagesResult, error) {
	agent, err := s.validateAgent(agent)
	if err != nil {
		return nil, err
	}

	if status != "" {
		if status, err = validateEnum(status, "status", ChatStatuses); err != nil {
			return nil, err
		}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return nil, err
	}

	limitValue := ClampLimit(limit)

	var sb strings.Builder
	args := []any{agent}
	fmt.Fprintf(&sb, "SELECT * FROM agent_chat WHERE (to_agent = %s OR to_agent = 'all')", b.Placeholder(1))
	if status != "" {
		args = append(args, status)
		fmt.Fprintf(&sb, " AND status = %s", b.Placeholder(len(args)))
	}
	args = append(args, limitValue)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT %s", b.Placeholder(len(args)))

	messages, err := b.FetchAll(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}

	// Mark only the fetched messages read, one by one: rows beyond this page
	// stay pending, and the status guard keeps a concurrent reader from
	// regressing a later state.
	markSQL := fmt.Sprintf(
		"UPDATE agent_chat SET status = 'read', read_at = CURRENT_TIMESTAMP WHERE id = %s AND status = 'pending'",
		b.Placeholder(1))

	for _, msg := range messages {
		if toString(msg["status"]) != "pending" || toString(msg["from_agent"]) == agent {
			continue
		}

		affected, err := b.Execute(ctx, markSQL, toInt64(msg["id"]))
		if err != nil {
			return nil, err
		}
		if affected > 0 {
			msg["status"] = "read"
		}
	}

	return &MessagesResult{
		Agent:    agent,
		Messages: messages,
		Count:    len(messages),
	}, nil
}

// RespondMessageParams are the arguments for RespondMessage.
type RespondMessageParams struct {
	MessageID int64
	Response  string
	Resolve   bool
}

// RespondMessage records a response on a message and moves it to replied, or
// straight to resolved. Status only moves forward: a resolved message never
// regresses, and messages are never deleted.
func (s *Service) RespondMessage(ctx context.Context, p RespondMessageParams) error {
	if strings.TrimSpace(p.Response) == "" {
		return ValidationError{Reason: "response is required"}
	}

	b, err := s.backend(ctx)
	if err != nil {
		return err
	}

	row, err := b.FetchOne(ctx,
		"SELECT id, status FROM agent_chat WHERE id = "+b.Placeholder(1), p.MessageID)
	if err != nil {
		return err
	}
	if row == nil {
		return NotFoundError{Message: fmt.Sprintf("No message with id %d", p.MessageID)}
	}

	target := "replied"
	if p.Resolve {
		target = "resolved"
	}

	current := toString(row["status"])
	if slices.Index(ChatStatuses, current) > slices.Index(ChatStatuses, target) {
		return ValidationError{
			Reason: fmt.Sprintf("Message %d is already %s; status cannot move backwards", p.MessageID, current),
		}
	}

	var sql string
	args := []any{p.Response, target, p.MessageID}
	if p.Resolve {
		sql = fmt.Sprintf(
			"UPDATE agent_chat SET response = %s, status = %s, resolved_at = CURRENT_TIMESTAMP WHERE id = %s",
			b.Placeholder(1), b.Placeholder(2), b.Placeholder(3))
	} else {
		sql = fmt.Sprintf(
			"UPDATE agent_chat SET response = %s, status = %s WHERE id = %s",
			b.Placeholder(1), b.Placeholder(2), b.Placeholder(3))
	}

	if _, err := b.Execute(ctx, sql, args...); err != nil {
		return err
	}

	return nil
}
