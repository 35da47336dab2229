package windows

import "cdv/data"

// Action is a user intent routed through MainWindow.Dispatch. The set is
// closed: every UI event is translated into one of these before it touches
// the registry or the task slot.
type Action interface{ action() }

// AddSource registers a new source and shows its contents.
type AddSource struct {
	Descriptor *data.TableDescriptor
}

// RunQuery loads a table or runs SQL and shows the result.
type RunQuery struct {
	Query data.Query
}

// SortColumn advances the sort on the displayed snapshot after a header
// click.
type SortColumn struct {
	Column string
}

// RemoveSource deregisters a source.
type RemoveSource struct {
	Name string
}

// RenameSource re-registers a source under a new name.
type RenameSource struct {
	From, To string
}

// ShowError surfaces an error without touching the displayed data.
type ShowError struct {
	Err error
}

func (AddSource) action()    {}
func (RunQuery) action()     {}
func (SortColumn) action()   {}
func (RemoveSource) action() {}
func (RenameSource) action() {}
func (ShowError) action()    {}
