package windows

import (
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"cdv/data"
)

// dataFileExtensions are the file types the picker offers.
var dataFileExtensions = []string{".parquet", ".csv", ".json", ".ndjson", ".jsonl"}

func isDataFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range dataFileExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SourceDialog lets the user pick a local data file or type a remote URL.
// The chosen location is handed back as a descriptor ready for registration.
type SourceDialog struct {
	dialog      dialog.Dialog
	window      fyne.Window
	callback    func(*data.TableDescriptor)
	fileList    *widget.List
	files       []string
	homeDir     string
	currentPath string
	pathLabel   *widget.Label
	nameEntry   *widget.Entry
}

func NewSourceDialog(w fyne.Window, callback func(*data.TableDescriptor)) *SourceDialog {
	sd := &SourceDialog{
		window:   w,
		callback: callback,
		files:    make([]string, 0),
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	sd.homeDir = homeDir
	sd.currentPath = homeDir

	return sd
}

// describe builds the descriptor for a chosen location, applying the
// optional name override.
func (sd *SourceDialog) describe(location string) *data.TableDescriptor {
	d := data.NewTableDescriptor(location)
	if name := strings.TrimSpace(sd.nameEntry.Text); name != "" {
		d = d.WithName(name)
	}
	return d
}

func (sd *SourceDialog) Show() {
	sd.pathLabel = widget.NewLabel(sd.currentPath)
	sd.pathLabel.Wrapping = fyne.TextTruncate
	sd.pathLabel.TextStyle = fyne.TextStyle{Bold: true}

	sd.nameEntry = widget.NewEntry()
	sd.nameEntry.SetPlaceHolder("Table name (optional, derived from file name)")

	sd.fileList = widget.NewList(
		func() int {
			return len(sd.files)
		},
		func() fyne.CanvasObject {
			icon := widget.NewIcon(theme.DocumentIcon())
			label := widget.NewLabel("template")
			return container.NewHBox(icon, label)
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			cont := obj.(*fyne.Container)
			icon := cont.Objects[0].(*widget.Icon)
			label := cont.Objects[1].(*widget.Label)

			fileName := sd.files[id]
			label.SetText(fileName)

			fullPath := filepath.Join(sd.currentPath, fileName)
			fileInfo, err := os.Stat(fullPath)
			if err == nil && fileInfo.IsDir() {
				icon.SetResource(theme.FolderIcon())
			} else if isDataFile(fileName) {
				icon.SetResource(theme.DocumentIcon())
			} else {
				icon.SetResource(theme.FileIcon())
			}
		},
	)

	sd.fileList.OnSelected = func(id widget.ListItemID) {
		fileName := sd.files[id]
		fullPath := filepath.Join(sd.currentPath, fileName)

		fileInfo, err := os.Stat(fullPath)
		if err != nil {
			return
		}

		if fileInfo.IsDir() {
			sd.currentPath = fullPath
			sd.loadDirectory()
			sd.fileList.UnselectAll()
		} else {
			sd.callback(sd.describe(fullPath))
			sd.dialog.Hide()
		}
	}

	homeButton := widget.NewButtonWithIcon("Home", theme.HomeIcon(), func() {
		sd.currentPath = sd.homeDir
		sd.loadDirectory()
	})

	upButton := widget.NewButtonWithIcon("Up", theme.NavigateBackIcon(), func() {
		parent := filepath.Dir(sd.currentPath)
		if parent != sd.currentPath {
			sd.currentPath = parent
			sd.loadDirectory()
		}
	})

	refreshButton := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), func() {
		sd.loadDirectory()
	})

	// Remote sources bypass the file list entirely.
	urlEntry := widget.NewEntry()
	urlEntry.SetPlaceHolder("s3://bucket/path/file.parquet or https://host/file.csv")
	addRemote := widget.NewButtonWithIcon("Add Remote", theme.DownloadIcon(), func() {
		location := strings.TrimSpace(urlEntry.Text)
		if location == "" {
			return
		}
		sd.callback(sd.describe(location))
		sd.dialog.Hide()
	})
	urlEntry.OnSubmitted = func(string) { addRemote.OnTapped() }

	filterInfo := widget.NewLabel("Showing: " + strings.Join(dataFileExtensions, ", ") + " files, and directories")
	filterInfo.TextStyle = fyne.TextStyle{Italic: true}

	navToolbar := container.NewBorder(
		nil, nil,
		container.NewHBox(homeButton, upButton, refreshButton),
		nil,
		sd.pathLabel,
	)

	content := container.NewBorder(
		container.NewVBox(
			sd.nameEntry,
			container.NewBorder(nil, nil, nil, addRemote, urlEntry),
			widget.NewSeparator(),
			navToolbar,
			widget.NewSeparator(),
			filterInfo,
		),
		nil, nil, nil,
		sd.fileList,
	)

	sd.dialog = dialog.NewCustom("Add Data Source", "Close", content, sd.window)
	sd.dialog.Resize(fyne.NewSize(800, 600))

	sd.loadDirectory()

	sd.dialog.Show()
}

func (sd *SourceDialog) loadDirectory() {
	entries, err := os.ReadDir(sd.currentPath)
	if err != nil {
		dialog.ShowError(err, sd.window)
		return
	}

	sd.files = make([]string, 0)

	// Add directories first
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			sd.files = append(sd.files, entry.Name())
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() && isDataFile(entry.Name()) {
			sd.files = append(sd.files, entry.Name())
		}
	}

	sd.pathLabel.SetText(sd.currentPath)
	sd.fileList.Refresh()
}
