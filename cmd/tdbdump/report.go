// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"html/template"
	"os"
)

// No example repo in the retrieval pack carries a templating or asset-
// bundling dependency that fits a one-page report; the standard
// library's html/template is the documented choice for exactly this
// (DESIGN.md).
const reportTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>tdbdump report</title></head>
<body>
<h1>Extracted thumbnails</h1>
<table border="1" cellpadding="4">
<tr><th>#</th><th>File</th><th>Original name</th><th>MIME</th><th>MD5</th></tr>
{{range .}}<tr>
<td>{{.Index}}</td>
<td>{{if .FileName}}<a href="{{.FileName}}">{{.FileName}}</a>{{else}}(dormant){{end}}</td>
<td>{{.OriginalName}}</td>
<td>{{.MIME}}</td>
<td>{{.MD5}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`

var report = template.Must(template.New("report").Parse(reportTemplate))

func writeReport(path string, records []writtenRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.Execute(f, records)
}
