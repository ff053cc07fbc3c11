package artman

import "strings"

// TaskType is the shape of build a config describes.
type TaskType string

const (
	// TaskClient builds a single java_gapic client artifact.
	TaskClient TaskType = "JAVA_GAPIC"
	// TaskTransport builds java_proto then java_grpc.
	TaskTransport TaskType = "JAVA_GRPC"
	TaskUnknown   TaskType = "UNKNOWN"
)

// Artifact kinds passed as the trailing positional to the publishing tool.
const (
	KindGapic = "java_gapic"
	KindProto = "java_proto"
	KindGRPC  = "java_grpc"
)

// Classify picks a TaskType from marker substrings in the raw config text.
// It is a heuristic: a marker inside a comment still counts.
func Classify(content string) TaskType {
	if strings.Contains(content, "JAVA_GAPIC") || strings.Contains(content, KindGapic) {
		return TaskClient
	}
	if strings.Contains(content, KindGRPC) && strings.Contains(content, KindProto) {
		return TaskTransport
	}
	return TaskUnknown
}
