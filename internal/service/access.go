package service

import "github.com/Mandalorian7773/Task-Board-Pro/internal/domain"

// Action is an operation a principal attempts on a project or one of its tasks.
type Action string

// Actions checked by Authorize
const (
	ActionViewProject      Action = "project:view"
	ActionEditProject      Action = "project:edit"
	ActionDeleteProject    Action = "project:delete"
	ActionRemoveMember     Action = "project:remove-member"
	ActionJoinProject      Action = "project:join"
	ActionCreateTask       Action = "task:create"
	ActionEditTask         Action = "task:edit"
	ActionChangeTaskStatus Action = "task:change-status"
	ActionDeleteTask       Action = "task:delete"
)

// DenyReason tells the caller which error category a denial maps to.
type DenyReason string

// Deny reasons
const (
	DenyNotFound      DenyReason = "not-found"
	DenyForbidden     DenyReason = "forbidden"
	DenyAlreadyMember DenyReason = "already-member"
)

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into the matching domain error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case DenyNotFound:
		return domain.ErrNotFound
	case DenyAlreadyMember:
		return domain.ErrAlreadyMember
	default:
		return domain.ErrForbidden
	}
}

// Authorize decides whether principalID may perform action on project.
// task is required for task-scoped actions other than create and must belong
// to project. The admin is recognised by identity and never needs to be in
// TeamMembers. Authorize performs no I/O.
func Authorize(project *domain.Project, principalID string, action Action, task *domain.Task) Decision {
	if project == nil {
		return deny(DenyNotFound)
	}
	if principalID == "" {
		return deny(DenyForbidden)
	}

	isAdmin := project.IsAdmin(principalID)
	isMember := project.IsMember(principalID)

	switch action {
	case ActionViewProject:
		return allowIf(isAdmin || isMember)

	case ActionEditProject, ActionDeleteProject, ActionRemoveMember, ActionCreateTask:
		return allowIf(isAdmin)

	case ActionJoinProject:
		if isAdmin || isMember {
			return deny(DenyAlreadyMember)
		}
		return allow

	case ActionEditTask, ActionDeleteTask, ActionChangeTaskStatus:
		if task == nil || task.ProjectID != project.ID {
			return deny(DenyNotFound)
		}
		if action == ActionChangeTaskStatus {
			return allowIf(isAdmin || task.IsAssignedTo(principalID))
		}
		return allowIf(isAdmin)
	}

	return deny(DenyForbidden)
}

func allowIf(ok bool) Decision {
	if ok {
		return allow
	}
	return deny(DenyForbidden)
}
