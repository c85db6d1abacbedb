// Package status defines the Runner's status machine (spec.md §3, §4.6):
// a small closed set of states, two of which carry a payload (the current
// stage name, or an error message). Go has no tagged-union enum, so Status
// is a struct with a Kind discriminator and the payload field that Kind
// implies is populated.
package status

import "fmt"

// Kind discriminates the variant of a Status.
type Kind int

const (
	Start Kind = iota
	PrepareAssets
	BuildStageScript
	RunStage
	Success
	Error
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "Start"
	case PrepareAssets:
		return "PrepareAssets"
	case BuildStageScript:
		return "BuildStageScript"
	case RunStage:
		return "RunStage"
	case Success:
		return "Success"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status is one value of the Runner's status machine.
type Status struct {
	Kind Kind
	// StageName is populated for BuildStageScript and RunStage.
	StageName string
	// Message is populated for Error.
	Message string
}

func (s Status) String() string {
	switch s.Kind {
	case BuildStageScript, RunStage:
		return fmt.Sprintf("%s(%s)", s.Kind, s.StageName)
	case Error:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Message)
	default:
		return s.Kind.String()
	}
}

func StartStatus() Status { return Status{Kind: Start} }

func PrepareAssetsStatus() Status { return Status{Kind: PrepareAssets} }

func BuildStageScriptStatus(stageName string) Status {
	return Status{Kind: BuildStageScript, StageName: stageName}
}

func RunStageStatus(stageName string) Status {
	return Status{Kind: RunStage, StageName: stageName}
}

func SuccessStatus() Status { return Status{Kind: Success} }

func ErrorStatus(message string) Status {
	return Status{Kind: Error, Message: message}
}
