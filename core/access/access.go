// Package access holds the capability checks gating every action on a
// resource. All checks are pure predicates over already-loaded entity data;
// they have no side effects and hit no storage.
package access

import "github.com/trezcool/kazi/core/user"

// Projects

// CanReadProject allows project members.
func CanReadProject(actorID string, memberIDs []string) bool {
	return contains(memberIDs, actorID)
}

// CanWriteProject allows the project creator only. Covers update, delete,
// add-member and remove-member.
func CanWriteProject(actorID, creatorID string) bool {
	return actorID == creatorID
}

// Tasks

// CanReadTask allows members of the task's project.
func CanReadTask(actorID string, projectMemberIDs []string) bool {
	return contains(projectMemberIDs, actorID)
}

// CanWriteTask allows the project creator, the current assignee or the task
// creator.
func CanWriteTask(actorID, projectCreatorID, assignedToID, createdByID string) bool {
	return actorID == projectCreatorID || actorID == assignedToID || actorID == createdByID
}

// CanUpdateTaskStatus allows the project creator or the current assignee.
// Stricter than CanWriteTask: the task creator alone may not move status.
func CanUpdateTaskStatus(actorID, projectCreatorID, assignedToID string) bool {
	return actorID == projectCreatorID || actorID == assignedToID
}

// CanReassignTask allows the project creator or the task creator.
func CanReassignTask(actorID, projectCreatorID, createdByID string) bool {
	return actorID == projectCreatorID || actorID == createdByID
}

// CanAssignTo is the professor-assignment guard: a Student may never assign
// or reassign a task to a Professor. It composes with (applies in addition
// to) the write checks above.
func CanAssignTo(actor, target user.User) bool {
	return !(actor.IsStudent() && target.IsProfessor())
}

// Notifications

// CanReadNotification allows the recipient only; mark-read uses the same rule.
func CanReadNotification(actorID, recipientID string) bool {
	return actorID == recipientID
}

// Statistics

// CanReadStatistics allows a Professor to read anyone's statistics and a
// Student to read only their own.
func CanReadStatistics(actor user.User, subjectID string) bool {
	if actor.IsProfessor() {
		return true
	}
	return actor.ID == subjectID
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
