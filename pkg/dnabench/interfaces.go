package dnabench

import (
	"github.com/himanishpuri/dnabench/pkg/dnabench/storage"
)

// Storage persists runs and their per-clip evaluations.
type Storage interface {
	CreateRun(run *storage.Run) error
	SaveEvaluation(e *storage.Evaluation) error
	FinishRun(id string, runErr error) error
	GetRun(id string) (*storage.Run, error)
	ListRuns(limit int) ([]storage.Run, error)
	ListEvaluations(runID string) ([]storage.Evaluation, error)
	DeleteRun(id string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Progress receives coarse progress of long operations. Start is called once
// per stage, Increment once per handled file.
type Progress interface {
	Start(stage string, total int)
	Increment()
	Done()
}

type noProgress struct{}

func (noProgress) Start(string, int) {}
func (noProgress) Increment()        {}
func (noProgress) Done()             {}
