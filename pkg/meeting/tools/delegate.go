package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/boardroomlabs/boardroom/pkg/core/types"
	"github.com/boardroomlabs/boardroom/pkg/meeting/router"
)

// NewDelegateTaskTool builds the delegate_task handler on top of the agent
// router. Remote failures come back as failure results so the model can
// relay them, not as handler errors.
func NewDelegateTaskTool(rt *router.Router) (Declaration, Handler) {
	decl := Declaration{
		Name:        "delegate_task",
		Description: "Delegate a task to a registered remote agent and wait for its result.",
		Params: []Param{
			{Name: "target_agent_id", Type: "string", Description: "Id of the remote agent", Required: true},
			{Name: "task", Type: "string", Description: "Task description", Required: true},
			{Name: "input", Type: "object", Description: "Structured task input", Required: false},
		},
	}
	handler := func(ctx context.Context, args map[string]any, _ *Context) (types.ToolResult, error) {
		if rt == nil {
			return types.ToolResult{}, fmt.Errorf("delegate_task: no agent router is configured")
		}
		target := strings.TrimSpace(stringArg(args, "target_agent_id"))
		if target == "" {
			return types.ToolResult{}, fmt.Errorf("delegate_task: target_agent_id is required")
		}
		task := strings.TrimSpace(stringArg(args, "task"))
		if task == "" {
			return types.ToolResult{}, fmt.Errorf("delegate_task: task is required")
		}

		result, err := rt.Route(ctx, target, task, mapArg(args, "input"))
		if err != nil {
			return types.Fail(err.Error()), nil
		}
		return types.OK(map[string]any{
			"result":       result,
			DataKeyMessage: fmt.Sprintf("Agent %q completed the task.", target),
		}), nil
	}
	return decl, handler
}
