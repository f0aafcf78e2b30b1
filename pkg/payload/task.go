package payload

import (
	"fmt"
)

// Task is a single built resource scheduled for apply.
type Task struct {
	// Index is 1-based across the whole plan.
	Index int
	Total int

	// UnitIndex is the 1-based position of the dependency in the plan.
	UnitIndex int
	Unit      *DeployUnit
	Resource  *BuiltResource
}

func (st *Task) String() string {
	ns := st.Unit.Namespace
	if len(ns) == 0 || st.Resource.Kind == KindNamespace {
		return fmt.Sprintf("%s %q (%d of %d)", st.Resource.Kind, st.Resource.Name, st.Index, st.Total)
	}
	return fmt.Sprintf("%s \"%s/%s\" (%d of %d)", st.Resource.Kind, ns, st.Resource.Name, st.Index, st.Total)
}

// Tasks flattens the plan into tasks, keeping dependency and resource order.
func (r *BuildResult) Tasks() []*Task {
	total := 0
	for _, unit := range r.Deploy {
		total += len(unit.Resources)
	}
	tasks := make([]*Task, 0, total)
	for i := range r.Deploy {
		unit := &r.Deploy[i]
		for j := range unit.Resources {
			tasks = append(tasks, &Task{
				Index:     len(tasks) + 1,
				Total:     total,
				UnitIndex: i + 1,
				Unit:      unit,
				Resource:  &unit.Resources[j],
			})
		}
	}
	return tasks
}
