// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package windows

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"cdv/data"
)

var exportFormats = []struct {
	label  string
	ext    string
	format data.ExportFormat
}{
	{"Parquet", ".parquet", data.FormatParquet},
	{"CSV", ".csv", data.FormatCSV},
	{"JSON", ".json", data.FormatJSON},
}

// ShowExportDialog asks for a format and a destination, then writes the
// displayed snapshot out. The snapshot's current sort order is what lands on
// disk.
func (t *MainWindow) ShowExportDialog(snap *data.Snapshot) {
	if snap == nil {
		dialog.ShowInformation("Nothing to Export", "Load a table or run a query first", t.w)
		return
	}

	labels := make([]string, len(exportFormats))
	for i, f := range exportFormats {
		labels[i] = f.label
	}
	radio := widget.NewRadioGroup(labels, nil)
	radio.SetSelected(labels[0])

	dialog.ShowCustomConfirm("Export Data", "Choose File...", "Cancel", radio, func(ok bool) {
		if !ok {
			return
		}
		choice := exportFormats[0]
		for _, f := range exportFormats {
			if f.label == radio.Selected {
				choice = f
			}
		}

		save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, t.w)
				return
			}
			if writer == nil {
				return
			}
			path := writer.URI().Path()
			_ = writer.Close()

			if !strings.HasSuffix(strings.ToLower(path), choice.ext) {
				path += choice.ext
			}
			if err := snap.Export(choice.format, path); err != nil {
				t.SetStatus("Export failed")
				dialog.ShowError(err, t.w)
				return
			}
			t.SetStatus(fmt.Sprintf("Exported %d rows to %s", snap.NumRows(), path))
		}, t.w)
		save.SetFileName("export" + choice.ext)
		save.SetFilter(storage.NewExtensionFileFilter([]string{choice.ext}))
		save.Show()
	}, t.w)
}
