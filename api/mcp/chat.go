package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opshelm/worklog/pkg/worklog"
)

// addChatTools registers the agent messaging tools.
func (s *Server) addChatTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_agent_message",
		Description: "Send a message to another agent, or to 'all' as a broadcast.",
	}, s.handleSendAgentMessage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_agent_messages",
		Description: "Fetch messages addressed to an agent, newest first. Fetched pending messages from other senders are marked read.",
	}, s.handleGetAgentMessages)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "respond_agent_message",
		Description: "Record a response on a message and move it to replied, or straight to resolved.",
	}, s.handleRespondAgentMessage)
}

// SendAgentMessageInput represents the input arguments for the
// send_agent_message tool.
type SendAgentMessageInput struct {
	FromAgent string `json:"from_agent,omitempty" jsonschema:"sending agent (default: this process)"`
	ToAgent   string `json:"to_agent" jsonschema:"receiving agent, or 'all' for a broadcast"`
	Message   string `json:"message" jsonschema:"the message body"`
	Context   string `json:"context,omitempty" jsonschema:"work context the message refers to"`
	Priority  string `json:"priority,omitempty" jsonschema:"low, normal, or urgent (default: normal)"`
}

func (s *Server) handleSendAgentMessage(ctx context.Context, _ *mcp.CallToolRequest, input SendAgentMessageInput) (*mcp.CallToolResult, *worklog.StoreResult, error) {
	result, err := s.config.Service.SendMessage(ctx, worklog.SendMessageParams{
		FromAgent: input.FromAgent,
		ToAgent:   input.ToAgent,
		Message:   input.Message,
		Context:   input.Context,
		Priority:  input.Priority,
	})
	if err != nil {
		return s.failure("send_agent_message", err), nil, nil
	}

	return jsonResult(result)
}

// GetAgentMessagesInput represents the input arguments for the
// get_agent_messages tool.
type GetAgentMessagesInput struct {
	Agent  string `json:"agent,omitempty" jsonschema:"agent whose inbox to read (default: this process)"`
	Status string `json:"status,omitempty" jsonschema:"only messages in this status: pending, read, replied, or resolved"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum messages to return (default: 20)"`
}

func (s *Server) handleGetAgentMessages(ctx context.Context, _ *mcp.CallToolRequest, input GetAgentMessagesInput) (*mcp.CallToolResult, *worklog.MessagesResult, error) {
	result, err := s.config.Service.GetMessages(ctx, input.Agent, input.Status, input.Limit)
	if err != nil {
		return s.failure("get_agent_messages", err), nil, nil
	}

	return jsonResult(result)
}

// RespondAgentMessageInput represents the input arguments for the
// respond_agent_message tool.
type RespondAgentMessageInput struct {
	MessageID int64  `json:"message_id" jsonschema:"id of the message to respond to"`
	Response  string `json:"response" jsonschema:"the response text"`
	Resolve   bool   `json:"resolve,omitempty" jsonschema:"move the message straight to resolved"`
}

// MessageResponseOutput reports a recorded response.
type MessageResponseOutput struct {
	MessageID int64  `json:"message_id"`
	Status    string `json:"status"`
}

func (s *Server) handleRespondAgentMessage(ctx context.Context, _ *mcp.CallToolRequest, input RespondAgentMessageInput) (*mcp.CallToolResult, MessageResponseOutput, error) {
	err := s.config.Service.RespondMessage(ctx, worklog.RespondMessageParams{
		MessageID: input.MessageID,
		Response:  input.Response,
		Resolve:   input.Resolve,
	})
	if err != nil {
		return s.failure("respond_agent_message", err), MessageResponseOutput{}, nil
	}

	status := "replied"
	if input.Resolve {
		status = "resolved"
	}

	return jsonResult(MessageResponseOutput{MessageID: input.MessageID, Status: status})
}
