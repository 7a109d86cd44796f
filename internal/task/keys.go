package task

import "strings"

// All shared-store keys go through these builders. One function per record
// kind keeps the namespace collision-free.
const namespace = "ta:"

// resultKey addresses the shared task record of one task id.
func resultKey(taskID string) string {
	return namespace + "task:result:" + taskID
}

// resultKeyPattern matches every task record key.
func resultKeyPattern() string {
	return namespace + "task:result:*"
}

// taskIDFromKey recovers the task id from a result key.
func taskIDFromKey(key string) string {
	return strings.TrimPrefix(key, namespace+"task:result:")
}

// messageKey addresses the per-consumer progress message slot of a task.
// Only the first segment of the task id is used, matching what the
// presentation layer subscribes to.
func messageKey(group, taskID string) string {
	short := strings.SplitN(taskID, "-", 2)[0]
	return namespace + "message:" + group + ":" + short
}
