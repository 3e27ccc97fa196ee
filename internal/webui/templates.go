package webui

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Triago Ticket Analysis</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
fieldset { margin: 1rem 0; border: 1px solid #ccc; border-radius: 4px; }
legend { font-weight: 600; }
label { display: block; margin: .3rem 0; }
input[type=text] { width: 24rem; max-width: 100%; }
button { margin-top: 1rem; padding: .5rem 1.5rem; font-size: 1rem; }
.hint { color: #666; font-size: .85rem; }
</style>
</head>
<body>
<h1>Triago Ticket Analysis</h1>
<p class="hint">Provider {{.Provider}}, model {{.Model}}. Upload a CSV, pick the analyses, download the annotated file.</p>
<form method="post" action="/api/v1/analyze" enctype="multipart/form-data">
<fieldset>
<legend>Input file</legend>
<input type="file" name="file" accept=".csv" required>
</fieldset>
<fieldset>
<legend>Columns</legend>
<label>Ticket text columns <input type="text" name="columns" placeholder="subject, body (blank for all)"></label>
<label>Identifier column <input type="text" name="id_column" placeholder="blank to auto-detect"></label>
</fieldset>
{{range .Groups}}<fieldset>
<legend>{{.Name}}</legend>
{{range .Defs}}<label><input type="checkbox" name="types" value="{{.Key}}"{{if index $.Preselected .Key}} checked{{end}}> {{.Label}}</label>
{{end}}</fieldset>
{{end}}<input type="hidden" name="explanations_sent" value="1">
<label><input type="checkbox" name="explanations"{{if .Explanations}} checked{{end}}> Include explanations</label>
<button type="submit">Analyze</button>
</form>
<p class="hint">Recent runs: <a href="/api/v1/history">/api/v1/history</a>. Catalog: <a href="/api/v1/types">/api/v1/types</a>.</p>
</body>
</html>
`
