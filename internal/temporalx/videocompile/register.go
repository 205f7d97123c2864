package videocompile

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// Registrar is satisfied by worker.Worker and the SDK test environment.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register binds the workflow and its activities under their stable names.
func Register(reg Registrar, acts *Activities) {
	reg.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	reg.RegisterActivityWithOptions(acts.Stitch, activity.RegisterOptions{Name: ActivityStitch})
	reg.RegisterActivityWithOptions(acts.MarkCompiled, activity.RegisterOptions{Name: ActivityMarkCompiled})
	reg.RegisterActivityWithOptions(acts.MarkFailed, activity.RegisterOptions{Name: ActivityMarkFailed})
}
