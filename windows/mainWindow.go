package windows

import (
	"context"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"cdv/config"
	"cdv/data"
)

// TappableListItem is a label that supports both regular click and right-click
type TappableListItem struct {
	widget.Label
	onRightClick func(widget.ListItemID, *fyne.PointEvent)
	onTap        func(widget.ListItemID)
	itemID       widget.ListItemID
}

func newTappableListItem(onRightClick func(widget.ListItemID, *fyne.PointEvent)) *TappableListItem {
	item := &TappableListItem{
		onRightClick: onRightClick,
		itemID:       -1,
	}
	item.ExtendBaseWidget(item)
	return item
}

func (t *TappableListItem) SetItemID(id widget.ListItemID) {
	t.itemID = id
}

func (t *TappableListItem) SetOnTap(callback func(widget.ListItemID)) {
	t.onTap = callback
}

// Tapped handles regular left-click
func (t *TappableListItem) Tapped(e *fyne.PointEvent) {
	if t.onTap != nil && t.itemID >= 0 {
		t.onTap(t.itemID)
	}
}

// TappedSecondary handles right-click
func (t *TappableListItem) TappedSecondary(e *fyne.PointEvent) {
	if t.onRightClick != nil && t.itemID >= 0 {
		t.onRightClick(t.itemID, e)
	}
}

type MainWindow struct {
	a                 fyne.App
	w                 fyne.Window
	cfg               *config.Config
	registry          *data.Registry
	slot              *data.TaskSlot
	viewer            *DataViewer
	sources           []string
	sourceBindingList binding.StringList
	queryEntry        *widget.Entry
	statusBar         *widget.Label
	busy              *widget.ProgressBarInfinite
	left              fyne.CanvasObject
}

func CreateMainWindow(cfg *config.Config, registry *data.Registry) *MainWindow {
	var v MainWindow
	v.NewMainWindow(cfg, registry)
	return &v
}

// SetStatus updates the status bar message
func (t *MainWindow) SetStatus(message string) {
	if t.statusBar != nil {
		t.statusBar.SetText(message)
	}
}

func (t *MainWindow) NewMainWindow(cfg *config.Config, registry *data.Registry) {
	t.cfg = cfg
	t.registry = registry
	t.a = app.NewWithID("cdv")
	t.a.Settings().SetTheme(themeFor(cfg.Theme))
	// Completed operations schedule a poll on the UI thread instead of
	// waiting for the next input event.
	t.slot = data.NewTaskSlot(func() {
		fyne.Do(t.resolve)
	})

	t.statusBar = widget.NewLabel("Ready")
	t.statusBar.TextStyle = fyne.TextStyle{Italic: true}
	t.busy = widget.NewProgressBarInfinite()
	t.busy.Hide()

	t.sourceBindingList = binding.NewStringList()
	t.w = t.a.NewWindow("Columnar Data Viewer")
	t.w.Resize(fyne.NewSize(1000, 700))

	t.viewer = NewDataViewer(func(column string) {
		t.Dispatch(SortColumn{Column: column})
	})

	// Store reference to the context menu callback
	var showSourceContextMenu func(widget.ListItemID, *fyne.PointEvent)

	sourcesWidget := widget.NewListWithData(t.sourceBindingList, func() fyne.CanvasObject {
		return newTappableListItem(showSourceContextMenu)
	}, func(di binding.DataItem, co fyne.CanvasObject) {
		item := co.(*TappableListItem)
		item.Bind(di.(binding.String))
	})

	// Set item IDs and tap handler when updating
	originalUpdateItem := sourcesWidget.UpdateItem
	sourcesWidget.UpdateItem = func(id widget.ListItemID, item fyne.CanvasObject) {
		if tappableItem, ok := item.(*TappableListItem); ok {
			tappableItem.SetItemID(id)
			tappableItem.SetOnTap(func(itemID widget.ListItemID) {
				if sourcesWidget.OnSelected != nil {
					sourcesWidget.OnSelected(itemID)
				}
			})
		}
		originalUpdateItem(id, item)
	}

	sourcesWidget.OnSelected = func(id widget.ListItemID) {
		if id < 0 || id >= widget.ListItemID(len(t.sources)) {
			return
		}
		t.Dispatch(RunQuery{Query: data.TableQuery(t.sources[id])})
		sourcesWidget.UnselectAll()
	}

	showSourceContextMenu = func(itemID widget.ListItemID, e *fyne.PointEvent) {
		if itemID < 0 || itemID >= widget.ListItemID(len(t.sources)) {
			return
		}
		name := t.sources[itemID]

		sourceContextMenu := fyne.NewMenu("",
			fyne.NewMenuItem("Open", func() {
				t.Dispatch(RunQuery{Query: data.TableQuery(name)})
			}),
			fyne.NewMenuItem("Rename...", func() {
				t.showRenameDialog(name)
			}),
			fyne.NewMenuItem("Remove", func() {
				dialog.ShowConfirm("Remove Source",
					fmt.Sprintf("Remove %q from the session? The file on disk is untouched.", name),
					func(ok bool) {
						if ok {
							t.Dispatch(RemoveSource{Name: name})
						}
					}, t.w)
			}),
		)
		widget.ShowPopUpMenuAtPosition(sourceContextMenu, t.w.Canvas(), e.AbsolutePosition)
	}

	t.left = container.NewGridWrap(fyne.NewSize(180, 768),
		widget.NewCard("", "Sources", sourcesWidget))

	t.queryEntry = widget.NewEntry()
	t.queryEntry.SetPlaceHolder("SELECT * FROM ...")
	t.queryEntry.OnSubmitted = func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		t.Dispatch(RunQuery{Query: data.SQLQuery(text)})
	}
	runButton := widget.NewButtonWithIcon("Run", theme.MediaPlayIcon(), func() {
		t.queryEntry.OnSubmitted(t.queryEntry.Text)
	})
	queryBar := container.NewBorder(nil, nil, nil, runButton, t.queryEntry)

	top := widget.NewToolbar(
		widget.NewToolbarAction(theme.MenuIcon(), func() {
			if !t.left.Visible() {
				t.left.Show()
			} else {
				t.left.Hide()
			}
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), func() {
			t.OpenSourceDialog()
		}),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() {
			if snap := t.viewer.Snapshot(); snap != nil {
				t.Dispatch(RunQuery{Query: snap.Query()})
			}
		}),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			t.ShowExportDialog(t.viewer.Snapshot())
		}),
	)

	bottom := container.NewBorder(nil, nil, nil, t.busy, t.statusBar)

	center := container.NewBorder(queryBar, nil, nil, nil, t.viewer.Widget())
	c := container.NewBorder(top, bottom, t.left, nil, center)
	t.w.SetContent(c)

	// Dropping files on the window registers them.
	t.w.SetOnDropped(func(_ fyne.Position, uris []fyne.URI) {
		for _, uri := range uris {
			t.Dispatch(AddSource{Descriptor: data.NewTableDescriptor(uri.Path())})
		}
	})

	t.w.SetCloseIntercept(func() {
		_ = t.registry.Close()
		t.w.Close()
	})
}

// OpenSourceDialog shows the add-source picker.
func (t *MainWindow) OpenSourceDialog() {
	sd := NewSourceDialog(t.w, func(d *data.TableDescriptor) {
		t.Dispatch(AddSource{Descriptor: d})
	})
	sd.Show()
}

// Run hands control to the event loop. It returns when the window closes.
func (t *MainWindow) Run() {
	t.w.ShowAndRun()
}

// Dispatch routes a user action. Long-running work (registration, queries,
// sorting) goes through the task slot; registry bookkeeping (remove, rename)
// is quick and runs inline.
func (t *MainWindow) Dispatch(a Action) {
	switch a := a.(type) {
	case AddSource:
		if a.Descriptor == nil {
			return
		}
		d := a.Descriptor.WithCredentials(credsFromConfig(t.cfg))
		t.submit("Adding source...", func(ctx context.Context) (*data.Snapshot, error) {
			name, err := t.registry.AddSource(ctx, d)
			if err != nil {
				return nil, err
			}
			return t.registry.Query(ctx, data.TableQuery(name))
		})

	case RunQuery:
		q := a.Query
		t.submit("Running query...", func(ctx context.Context) (*data.Snapshot, error) {
			return t.registry.Query(ctx, q)
		})

	case SortColumn:
		snap := t.viewer.Snapshot()
		if snap == nil {
			return
		}
		next := snap.Sort().Advance(a.Column)
		t.submit("Sorting by "+a.Column+"...", func(ctx context.Context) (*data.Snapshot, error) {
			return snap.SortBy(ctx, next)
		})

	case RemoveSource:
		if _, err := t.registry.RemoveSource(context.Background(), a.Name); err != nil {
			t.Dispatch(ShowError{Err: err})
			return
		}
		if snap := t.viewer.Snapshot(); snap != nil &&
			!snap.Query().IsSQL() && snap.Query().Table() == a.Name {
			t.viewer.SetSnapshot(nil)
			snap.Release()
		}
		t.refreshSources()
		t.SetStatus("Removed source: " + a.Name)

	case RenameSource:
		renamed, err := t.registry.RenameSource(context.Background(), a.From, a.To)
		if err != nil {
			t.Dispatch(ShowError{Err: err})
			return
		}
		t.refreshSources()
		t.SetStatus(fmt.Sprintf("Renamed %s to %s", a.From, renamed.Name))

	case ShowError:
		t.SetStatus("Error: " + a.Err.Error())
		dialog.ShowError(a.Err, t.w)
	}
}

// submit pushes an operation into the task slot and flips the busy
// indicator. A rejected overlap only touches the status bar; the running
// operation is left alone.
func (t *MainWindow) submit(status string, op data.Operation) {
	wrapped := func(ctx context.Context) (*data.Snapshot, error) {
		ctx, cancel := createTimeoutContext(0)
		defer cancel()
		return op(ctx)
	}
	if err := t.slot.Submit(wrapped); err != nil {
		t.SetStatus("An operation is already running")
		return
	}
	t.SetStatus(status)
	t.busy.Show()
	t.busy.Start()
}

// resolve consumes a finished operation. On error the previous snapshot
// stays on screen; the error is surfaced and nothing else changes.
func (t *MainWindow) resolve() {
	p := t.slot.Poll()
	if p.State != data.Done {
		return
	}
	t.busy.Stop()
	t.busy.Hide()

	if p.Err != nil {
		t.SetStatus("Error: " + p.Err.Error())
		dialog.ShowError(p.Err, t.w)
		return
	}
	if p.Snapshot == nil {
		return
	}

	old := t.viewer.Snapshot()
	if p.Snapshot != old {
		t.viewer.SetSnapshot(p.Snapshot)
		if old != nil {
			old.Release()
		}
	}
	t.refreshSources()
	t.SetStatus(statusFor(p.Snapshot))
}

func statusFor(s *data.Snapshot) string {
	text := fmt.Sprintf("%s (%d columns x %d rows)", s.Query(), s.NumCols(), s.NumRows())
	if sort := s.Sort(); sort.IsSorted() {
		direction := "↑"
		if sort.Order == data.Descending {
			direction = "↓"
		}
		text += fmt.Sprintf(" | Sorted: %s %s", sort.Column, direction)
	}
	return text
}

func (t *MainWindow) refreshSources() {
	t.sources = t.registry.SourceNames()
	t.sourceBindingList.Set(t.sources)
}

func (t *MainWindow) showRenameDialog(name string) {
	entry := widget.NewEntry()
	entry.SetText(name)
	items := []*widget.FormItem{widget.NewFormItem("New name", entry)}
	dialog.ShowForm("Rename Source", "Rename", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		to := strings.TrimSpace(entry.Text)
		if to == "" || to == name {
			return
		}
		t.Dispatch(RenameSource{From: name, To: to})
	}, t.w)
}

// SeedSources registers locations given on the command line before the
// window shows. firstName, when non-empty, overrides the derived name of the
// first location. Failures are collected, not fatal; the viewer still opens.
func (t *MainWindow) SeedSources(locations []string, firstName string) ([]string, []error) {
	var names []string
	var errs []error
	ctx := context.Background()
	for i, loc := range locations {
		d := data.NewTableDescriptor(loc).WithCredentials(credsFromConfig(t.cfg))
		if i == 0 && firstName != "" {
			d = d.WithName(firstName)
		}
		name, err := t.registry.AddSource(ctx, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", loc, err))
			continue
		}
		names = append(names, name)
	}
	t.refreshSources()
	return names, errs
}

func credsFromConfig(cfg *config.Config) data.Credentials {
	return data.Credentials{
		KeyID:        cfg.S3.KeyID,
		Secret:       cfg.S3.Secret,
		SessionToken: cfg.S3.SessionToken,
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
	}
}
